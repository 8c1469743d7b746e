package models

import "encoding/json"

// PageContent is the editable document behind one public page. Its shape
// belongs to the page that renders it; only updatedAt is managed here.
type PageContent map[string]json.RawMessage

// UpdatedAt returns the stamped modification time, or "" if absent.
func (p PageContent) UpdatedAt() string {
	var s string
	if raw, ok := p["updatedAt"]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}
