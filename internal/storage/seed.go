package storage

import "embed"

// Sample content shown when nothing has been stored yet. It only keeps the
// site from rendering empty and is never copied into the remote store.
//
//go:embed seed
var seedFS embed.FS

func seedCollection(c Collection) []Record {
	data, err := seedFS.ReadFile("seed/" + c.File)
	if err != nil {
		return []Record{}
	}
	recs, err := parseCollection(data)
	if err != nil {
		return []Record{}
	}
	return recs
}

func seedDocument(page string) (Record, bool) {
	data, err := seedFS.ReadFile("seed/" + PageFile(page))
	if err != nil {
		return nil, false
	}
	rec, err := NewRecordFromJSON(data)
	if err != nil {
		return nil, false
	}
	return rec, true
}
