package convert

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const htmlBlocks = "h1, h2, h3, h4, h5, h6, p, li, table, pre, img, blockquote"

// htmlItems extracts block elements in document order.
// Elements nested inside a list item, table, pre or blockquote are part of that
// container's text and are not emitted twice.
func htmlItems(r io.Reader) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	// Remove noise elements
	doc.Find("script, style, nav, noscript, iframe").Remove()

	var items []Item
	doc.Find(htmlBlocks).Each(func(i int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag != "li" && s.ParentsFiltered("li, table, pre, blockquote").Length() > 0 {
			return
		}
		if tag == "li" && s.ParentsFiltered("table, pre, blockquote").Length() > 0 {
			return
		}

		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if text := collapseSpace(s.Text()); text != "" {
				items = append(items, Item{Kind: KindHeading, Level: int(tag[1] - '0'), Text: text})
			}
		case "p", "blockquote":
			if text := collapseSpace(s.Text()); text != "" {
				items = append(items, Item{Kind: KindParagraph, Text: text})
			}
		case "li":
			// Nested lists are emitted as their own items
			clone := s.Clone()
			clone.Find("ul, ol").Remove()
			if text := collapseSpace(clone.Text()); text != "" {
				items = append(items, Item{Kind: KindListItem, Text: text})
			}
		case "pre":
			if code := strings.TrimRight(s.Text(), "\n"); strings.TrimSpace(code) != "" {
				items = append(items, Item{Kind: KindCode, Text: code})
			}
		case "table":
			if text := tableText(s); text != "" {
				items = append(items, Item{Kind: KindTable, Text: text})
			}
		case "img":
			text := ImagePlaceholder
			if alt := collapseSpace(s.AttrOr("alt", "")); alt != "" {
				text += "\n" + alt
			}
			items = append(items, Item{Kind: KindPicture, Text: text})
		}
	})

	return items, nil
}

// tableText renders table rows as pipe-joined cells.
func tableText(table *goquery.Selection) string {
	var rows []string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, collapseSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	})
	return strings.Join(rows, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
