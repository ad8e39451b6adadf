package models

import (
	"fmt"
	"strings"
)

// Kind identifies the asset type a run operates on
type Kind string

const (
	KindCSS Kind = "css"
	KindJS  Kind = "js"
)

// ParseKind converts a user-supplied string into a Kind
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindCSS:
		return KindCSS, nil
	case KindJS:
		return KindJS, nil
	default:
		return "", fmt.Errorf("unsupported asset kind %q (expected css or js)", s)
	}
}

// Marker returns the extension marker used to select source files
func (k Kind) Marker() string {
	return "." + string(k)
}

// MinifiedMarker returns the marker identifying already minified files
func (k Kind) MinifiedMarker() string {
	return ".min." + string(k)
}

// MediaType returns the media type used by in-process minifiers
func (k Kind) MediaType() string {
	switch k {
	case KindCSS:
		return "text/css"
	case KindJS:
		return "application/javascript"
	default:
		return ""
	}
}

// Candidate represents a source file selected for minification
type Candidate struct {
	Kind      Kind   `json:"kind"`
	Path      string `json:"path"`
	RelPath   string `json:"rel_path,omitempty"`
	Output    string `json:"output"`
	SourceMap string `json:"source_map,omitempty"`
	Single    bool   `json:"single"`
}
