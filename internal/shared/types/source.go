package types

import "github.com/GriffinCanCode/microfront/internal/shared/dom"

// Link describes a stylesheet resource extracted from an app's entry HTML.
type Link struct {
	Address string // absolute URL
	Rel     string
	Code    string // fetched content
}

// Script describes a script resource extracted from an app's entry HTML.
type Script struct {
	Address  string // absolute URL, empty for inline scripts
	Code     string
	IsInline bool
	Defer    bool
	Module   bool
}

// Source holds the loaded resources of one app. Links and Scripts are
// keyed by address (inline scripts by a synthetic index key). HTML is set
// once when the HTML channel completes; UMD remounts reuse it.
type Source struct {
	Links   map[string]*Link
	Scripts map[string]*Script
	Order   []string // script keys in document order
	HTML    *dom.Element
}

// NewSource creates an empty source record.
func NewSource() *Source {
	return &Source{
		Links:   make(map[string]*Link),
		Scripts: make(map[string]*Script),
	}
}
