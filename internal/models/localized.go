package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultLanguage is the language every localized field must carry.
const DefaultLanguage = "tr"

// Localized maps a language code to text, e.g. {"tr": "Banyo", "en": "Bathroom"}.
type Localized map[string]string

// UnmarshalJSON accepts both the object form and a bare string. A bare
// string is the older single-language shape and is stored under "tr".
func (l *Localized) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Localized{DefaultLanguage: s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("localized text must be a string or an object of strings: %w", err)
	}
	*l = m
	return nil
}

// Get returns the text for lang, falling back to the default language.
func (l Localized) Get(lang string) string {
	if s, ok := l[lang]; ok && s != "" {
		return s
	}
	return l[DefaultLanguage]
}
