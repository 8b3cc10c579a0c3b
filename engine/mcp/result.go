package mcp

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ResourceRef is one document entry from a listing-style tool result.
type ResourceRef struct {
	Path    string
	Formats []string
	URL     string
}

// ShapeKind tags the two result shapes a retrieval tool can return.
type ShapeKind int

const (
	// ShapePlainText is a result carrying only free-form text.
	ShapePlainText ShapeKind = iota
	// ShapeDocumentListing is a result carrying a resources array.
	ShapeDocumentListing
)

// ResultShape is the tagged union produced by ParseToolResultShape.
type ResultShape struct {
	Kind      ShapeKind
	Text      string
	Resources []ResourceRef
}

// ParseToolResultShape inspects a tool result's text items and resolves their
// shape. A JSON item containing a resources array makes the result a document
// listing; everything else is plain text. The Text field always carries the
// best human-readable rendition of the result.
func ParseToolResultShape(texts []string) ResultShape {
	shape := ResultShape{Kind: ShapePlainText, Text: JoinedText(texts)}
	for _, text := range texts {
		if !gjson.Valid(text) {
			continue
		}
		resources := gjson.Get(text, "resources")
		if !resources.IsArray() {
			continue
		}
		shape.Kind = ShapeDocumentListing
		resources.ForEach(func(_, entry gjson.Result) bool {
			ref := ResourceRef{
				Path: entry.Get("path").String(),
				URL:  entry.Get("url").String(),
			}
			entry.Get("formats").ForEach(func(_, format gjson.Result) bool {
				ref.Formats = append(ref.Formats, format.String())
				return true
			})
			if ref.Path != "" {
				shape.Resources = append(shape.Resources, ref)
			}
			return true
		})
	}
	return shape
}

// JoinedText extracts readable text from a tool result's text items,
// preferring items that do not look like JSON payloads.
func JoinedText(texts []string) string {
	var plain []string
	for _, text := range texts {
		if !looksLikeJSON(text) {
			plain = append(plain, text)
		}
	}
	if len(plain) > 0 {
		return strings.Join(plain, "\n")
	}
	return strings.Join(texts, "\n")
}

// HasFormat reports whether the ref carries the given format,
// case-insensitively.
func (r ResourceRef) HasFormat(format string) bool {
	for _, f := range r.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

func looksLikeJSON(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		return gjson.Valid(trimmed)
	}
	return false
}
