package convert

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_converter.go -package=mocks chunkrelay/internal/convert Converter

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when an engine cannot handle a format.
var ErrUnsupported = errors.New("format not supported by conversion engine")

// Converter turns a local file into a structured Document.
// Implementations either convert the whole file or fail; there is no partial result.
type Converter interface {
	Convert(ctx context.Context, path string, format Format) (*Document, error)
}

// ItemKind identifies the structural role of a document item.
type ItemKind string

const (
	KindHeading   ItemKind = "heading"
	KindParagraph ItemKind = "paragraph"
	KindListItem  ItemKind = "list_item"
	KindTable     ItemKind = "table"
	KindCode      ItemKind = "code"
	KindFormula   ItemKind = "formula"
	KindPicture   ItemKind = "picture"
)

// Item is one element of a converted document, in reading order.
type Item struct {
	Kind  ItemKind
	Level int    // Heading level (1-6); zero for other kinds
	Text  string // Plain or markdown text; tables are rendered as pipe rows
}

// Document is the structured representation of a converted file.
type Document struct {
	Name  string
	Items []Item
}

// ImagePlaceholder replaces picture content in converted output.
const ImagePlaceholder = "<!-- image -->"
