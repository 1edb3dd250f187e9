package models

import (
	"encoding/json"
	"fmt"
)

// Definition is the on-disk signature database: technologies.json
type Definition struct {
	// Technologies is organized as <name, technology>
	Technologies map[string]*RawTechnology `json:"technologies"`
	// Categories is organized as <id, category>
	Categories map[string]*RawCategory `json:"categories"`
}

// RawTechnology is a single technology entry as it appears in technologies.json
type RawTechnology struct {
	Cats    []int                  `json:"cats"`
	Cookies map[string]string      `json:"cookies,omitempty"`
	Headers map[string]string      `json:"headers,omitempty"`
	Meta    map[string]StringArray `json:"meta,omitempty"`
	HTML    StringArray            `json:"html,omitempty"`
	Scripts StringArray            `json:"scripts,omitempty"`
	URL     StringArray            `json:"url,omitempty"`
	Website string                 `json:"website,omitempty"`
	Implies StringArray            `json:"implies,omitempty"`
}

// RawCategory is a category entry as it appears in technologies.json
type RawCategory struct {
	Name     string `json:"name"`
	Priority int    `json:"priority,omitempty"`
}

// StringArray accepts either a single JSON string or a list of strings.
type StringArray []string

// UnmarshalJSON implements json.Unmarshaler
func (s *StringArray) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringArray{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*s = list
	return nil
}

// TechnologySignature is the compiled, read-only rule set for one technology
type TechnologySignature struct {
	Name     string
	Website  string
	Cats     []int
	CatNames []string
	Implies  []string
	HTML     []*CompiledPattern
	Scripts  []*CompiledPattern
	URL      []*CompiledPattern
	Headers  []*CompiledPattern
	Meta     []*CompiledPattern
	Cookies  []*CompiledPattern
}

// SignatureDatabase holds every compiled technology and the category names.
// It is never mutated after CompileDefinition returns.
type SignatureDatabase struct {
	Technologies map[string]*TechnologySignature
	Categories   map[int]string

	// names holds the technology names in sorted order
	names []string
}

// NewSignatureDatabase builds a database from compiled technologies
func NewSignatureDatabase(techs map[string]*TechnologySignature, categories map[int]string, names []string) *SignatureDatabase {
	return &SignatureDatabase{
		Technologies: techs,
		Categories:   categories,
		names:        names,
	}
}

// Names returns the technology names in a stable order
func (db *SignatureDatabase) Names() []string {
	return db.names
}

// Lookup returns the signature of the named technology
func (db *SignatureDatabase) Lookup(name string) (*TechnologySignature, bool) {
	tech, ok := db.Technologies[name]
	return tech, ok
}

// CategoryByID returns the name of a category, or an empty string
func (db *SignatureDatabase) CategoryByID(id int) string {
	return db.Categories[id]
}
