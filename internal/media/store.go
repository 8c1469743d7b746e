package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bilgisen/studio/internal/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

const keyPrefix = "uploads/"

var (
	ErrTooLarge        = errors.New("media: file too large")
	ErrUnsupportedType = errors.New("media: unsupported file type")
	ErrInvalidKey      = errors.New("media: invalid object key")
)

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/avif",
	"image/svg+xml",
	"application/pdf",
}

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// MediaFile describes one stored object.
type MediaFile struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

type Config struct {
	Bucket    string
	PublicURL string
	MaxSize   int64
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// Store keeps admin uploads in an S3-compatible bucket.
type Store struct {
	api       ObjectAPI
	bucket    string
	publicURL string
	maxSize   int64
	log       zerolog.Logger
	now       func() time.Time
}

func NewStore(api ObjectAPI, cfg Config) *Store {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 << 20
	}
	return &Store{
		api:       api,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxSize:   cfg.MaxSize,
		log:       log,
		now:       cfg.Now,
	}
}

// Upload stores r under a content-addressed key derived from name.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader) (*MediaFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("media: failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !allowed(mt) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	key := s.objectKey(name, data, mt.Extension())
	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("media: failed to upload %s: %w", key, err)
	}

	s.log.Info().
		Str("key", key).
		Str("content_type", contentType).
		Int("size", len(data)).
		Msg("Media uploaded")

	return &MediaFile{
		Key:         key,
		Name:        path.Base(key),
		URL:         s.URL(key),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// List returns every object under the uploads prefix, optionally narrowed
// by a sub-prefix such as "2026/03".
func (s *Store) List(ctx context.Context, prefix string) ([]MediaFile, error) {
	p := keyPrefix + strings.TrimLeft(prefix, "/")

	files := []MediaFile{}
	pages := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(p),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("media: failed to list %s: %w", p, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			f := MediaFile{
				Key:  key,
				Name: path.Base(key),
				URL:  s.URL(key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				f.LastModified = obj.LastModified.UTC().Format(time.RFC3339)
			}
			files = append(files, f)
		}
	}
	return files, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("media: failed to delete %s: %w", key, err)
	}
	s.log.Info().Str("key", key).Msg("Media deleted")
	return nil
}

// URL is the public address of key.
func (s *Store) URL(key string) string {
	if s.publicURL == "" {
		return "/" + key
	}
	return s.publicURL + "/" + key
}

// objectKey builds uploads/<yyyy>/<mm>/<hash12>-<slug><ext>.
func (s *Store) objectKey(name string, data []byte, ext string) string {
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(name, "\\", "/")), path.Ext(name))
	slug := utils.Slugify(base)
	if slug == "" {
		slug = "file"
	}
	now := s.now().UTC()
	return fmt.Sprintf("%s%04d/%02d/%s-%s%s",
		keyPrefix, now.Year(), int(now.Month()), utils.ShortHash(data, 12), slug, ext)
}

func allowed(mt *mimetype.MIME) bool {
	for _, t := range allowedTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func validKey(key string) bool {
	if !strings.HasPrefix(key, keyPrefix) || len(key) == len(keyPrefix) {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}
