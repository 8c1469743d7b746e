package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/studio/internal/models"
)

// DocumentStore treats named JSON files as tables. Every write replaces the
// whole document.
type DocumentStore interface {
	GetAll(ctx context.Context, c Collection) ([]Record, error)
	Create(ctx context.Context, c Collection, fields Record) (Record, error)
	Update(ctx context.Context, c Collection, id string, patch Record) (Record, error)
	Remove(ctx context.Context, c Collection, id string) error
	GetDocument(ctx context.Context, page string) (Record, error)
	SaveDocument(ctx context.Context, page string, doc Record) (Record, error)
}

// Collection names a table and the timestamp fields its records carry.
type Collection struct {
	Name         string
	File         string
	LocalKey     string
	CreatedField string
	UpdatedField string

	// Check rejects a merged record that no longer decodes into the
	// collection's model. Nil accepts anything.
	Check func(Record) error
}

var (
	Projects = Collection{
		Name:         "projects",
		File:         "projects.json",
		LocalKey:     "projects",
		CreatedField: "created_at",
		UpdatedField: "updated_at",
		Check:        decodes[models.Project],
	}
	Blog = Collection{
		Name:         "blog",
		File:         "blog.json",
		LocalKey:     "blog_posts",
		CreatedField: "createdAt",
		UpdatedField: "updatedAt",
		Check:        decodes[models.BlogPost],
	}
)

// PageUpdatedField is stamped on every saved page document.
const PageUpdatedField = "updatedAt"

// PageFile is the file name of a page document, relative to the data path.
func PageFile(page string) string {
	return "pages/" + page + ".json"
}

// Record is one stored JSON object. Values are kept raw so fields a caller
// does not touch are written back byte for byte.
type Record map[string]json.RawMessage

// ID returns the record identity, or "".
func (r Record) ID() string {
	return r.String("id")
}

// String decodes a string field, or returns "".
func (r Record) String(field string) string {
	var s string
	if raw, ok := r[field]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Record) setString(field, value string) {
	raw, _ := json.Marshal(value)
	r[field] = raw
}

// NewRecord encodes v (a struct or map) as a Record.
func NewRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return rec, nil
}

// Decode converts a record into a typed value.
func Decode[T any](rec Record) (T, error) {
	var out T
	data, err := json.Marshal(rec)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

func decodes[T any](rec Record) error {
	_, err := Decode[T](rec)
	return err
}

// DecodeAll converts records into typed values, preserving order.
func DecodeAll[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := Decode[T](rec)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", rec.ID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseCollection(data []byte) ([]Record, error) {
	var recs []Record
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Record{}, nil
	}
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

func encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// newID derives an id from the creation time. A clash inside the collection
// (two creates in the same millisecond) bumps the value until it is free.
func newID(now time.Time, existing []Record) string {
	taken := make(map[string]bool, len(existing))
	for _, r := range existing {
		taken[r.ID()] = true
	}
	n := now.UnixMilli()
	for taken[strconv.FormatInt(n, 10)] {
		n++
	}
	return strconv.FormatInt(n, 10)
}

// applyCreate builds the stored form of a new record and prepends it.
func applyCreate(c Collection, recs []Record, fields Record, now time.Time) (Record, []Record) {
	rec := fields.clone()
	stamp := models.FormatTime(now)
	rec.setString("id", newID(now, recs))
	rec.setString(c.CreatedField, stamp)
	rec.setString(c.UpdatedField, stamp)

	out := make([]Record, 0, len(recs)+1)
	out = append(out, rec)
	out = append(out, recs...)
	return rec, out
}

// applyUpdate shallow-merges patch over the record with id. Identity and
// creation time are never taken from the patch. recs is only modified when
// the merged record passes the collection check.
func applyUpdate(c Collection, recs []Record, id string, patch Record, now time.Time) (Record, error) {
	for i, existing := range recs {
		if existing.ID() != id {
			continue
		}
		rec := existing.clone()
		for k, v := range patch {
			if k == "id" || k == c.CreatedField || k == c.UpdatedField {
				continue
			}
			rec[k] = v
		}
		rec.setString(c.UpdatedField, models.FormatTime(now))
		if c.Check != nil {
			if err := c.Check(rec); err != nil {
				return nil, &Error{Op: "update", Path: c.Name + "#" + id, Kind: ErrInvalid, Err: err}
			}
		}
		recs[i] = rec
		return rec, nil
	}
	return nil, &Error{Op: "update", Path: c.Name + "#" + id, Kind: ErrNotFound}
}

// applyRemove filters out id. It reports whether anything was removed.
func applyRemove(recs []Record, id string) ([]Record, bool) {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.ID() != id {
			out = append(out, r)
		}
	}
	return out, len(out) != len(recs)
}

func stampDocument(doc Record, now time.Time) Record {
	out := doc.clone()
	out.setString(PageUpdatedField, models.FormatTime(now))
	return out
}

// ValidPageName reports whether page is safe to use as a file name.
func ValidPageName(page string) bool {
	if page == "" || len(page) > 64 {
		return false
	}
	for _, r := range page {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
