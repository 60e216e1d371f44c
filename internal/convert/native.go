package convert

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PictureDescriber produces a natural-language description of an image.
type PictureDescriber interface {
	Describe(ctx context.Context, image []byte, mimeType string) (string, error)
}

// NativeConverter converts PDF, HTML, plain text and CSV in-process.
// Office formats need the docling engine and are rejected.
type NativeConverter struct {
	describer PictureDescriber
	opts      Options
}

// NewNativeConverter creates an in-process converter.
// describer is used for PDF pages that carry no extractable text.
func NewNativeConverter(describer PictureDescriber, opts Options) *NativeConverter {
	return &NativeConverter{
		describer: describer,
		opts:      opts,
	}
}

// Convert dispatches on format.
func (c *NativeConverter) Convert(ctx context.Context, path string, format Format) (*Document, error) {
	name := filepath.Base(path)

	switch format {
	case FormatPDF:
		items, err := c.convertPDF(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Document{Name: name, Items: items}, nil

	case FormatHTML:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		items, err := htmlItems(f)
		if err != nil {
			return nil, err
		}
		return &Document{Name: name, Items: items}, nil

	case FormatTXT:
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return &Document{Name: name, Items: paragraphItems(string(content))}, nil

	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		items, err := csvItems(f)
		if err != nil {
			return nil, err
		}
		return &Document{Name: name, Items: items}, nil
	}

	return nil, fmt.Errorf("%w: %s (native engine; use the docling engine)", ErrUnsupported, format)
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// paragraphItems splits text into paragraphs on blank lines.
func paragraphItems(content string) []Item {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var items []Item
	for _, p := range blankLines.Split(content, -1) {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, Item{Kind: KindParagraph, Text: p})
		}
	}
	return items
}

// csvItems renders the whole file as one table item.
func csvItems(r io.Reader) ([]Item, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		row := strings.Join(record, " | ")
		if strings.Trim(row, " |") == "" {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return []Item{{Kind: KindTable, Text: strings.Join(rows, "\n")}}, nil
}
