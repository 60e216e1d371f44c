package convert

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// markdownParser is safe for concurrent use; goldmark parsers hold no per-parse state.
var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// ParseMarkdown turns converted markdown into document items in reading order.
// Headings open sections, tables become pipe-joined rows, and image placeholders
// become picture items.
func ParseMarkdown(name string, content []byte) *Document {
	doc := &Document{Name: name}
	if len(strings.TrimSpace(string(content))) == 0 {
		return doc
	}

	root := markdownParser.Parser().Parse(text.NewReader(content))
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		doc.Items = append(doc.Items, blockItems(n, content)...)
	}
	return doc
}

// blockItems converts one block-level node into zero or more items.
func blockItems(n ast.Node, content []byte) []Item {
	switch node := n.(type) {
	case *ast.Heading:
		headingText := extractTextFromNode(node, content)
		if headingText == "" {
			return nil
		}
		return []Item{{Kind: KindHeading, Level: node.Level, Text: headingText}}

	case *ast.Paragraph, *ast.TextBlock:
		raw := strings.TrimSpace(linesText(n, content))
		if raw == "" {
			return nil
		}
		if strings.HasPrefix(raw, "$$") && strings.HasSuffix(raw, "$$") && len(raw) > 4 {
			return []Item{{Kind: KindFormula, Text: raw}}
		}
		return []Item{{Kind: KindParagraph, Text: raw}}

	case *ast.HTMLBlock:
		raw := strings.TrimSpace(linesText(n, content))
		if strings.Contains(raw, ImagePlaceholder) {
			return []Item{{Kind: KindPicture, Text: ImagePlaceholder}}
		}
		if raw == "" {
			return nil
		}
		return []Item{{Kind: KindParagraph, Text: raw}}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		code := strings.TrimRight(linesText(n, content), "\n")
		if strings.TrimSpace(code) == "" {
			return nil
		}
		return []Item{{Kind: KindCode, Text: code}}

	case *ast.List:
		var items []Item
		for li := node.FirstChild(); li != nil; li = li.NextSibling() {
			items = append(items, listItems(li, content)...)
		}
		return items

	case *ast.Blockquote:
		var items []Item
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			items = append(items, blockItems(c, content)...)
		}
		return items

	case *east.Table:
		var rows []string
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			rows = append(rows, extractTableRowText(row, content))
		}
		if len(rows) == 0 {
			return nil
		}
		return []Item{{Kind: KindTable, Text: strings.Join(rows, "\n")}}
	}

	return nil
}

// listItems flattens a list item and any nested lists into list-item entries.
func listItems(li ast.Node, content []byte) []Item {
	var own []string
	var nested []Item
	for c := li.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			nested = append(nested, blockItems(c, content)...)
			continue
		}
		if t := strings.TrimSpace(linesText(c, content)); t != "" {
			own = append(own, t)
		}
	}

	var items []Item
	if len(own) > 0 {
		items = append(items, Item{Kind: KindListItem, Text: strings.Join(own, "\n")})
	}
	return append(items, nested...)
}

// linesText returns the raw source lines of a block node.
func linesText(n ast.Node, content []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(content))
	}
	return b.String()
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
			if v.SoftLineBreak() {
				textBuilder.WriteByte(' ')
			}
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, extractTextFromNode(cell, content))
	}
	return strings.Join(cells, " | ")
}
