package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// baseDPI is the PDF user-space resolution; ImagesScale multiplies it.
const baseDPI = 72

// convertPDF extracts page text with MuPDF. Pages without a text layer are
// rendered and described, so scanned pages still contribute content.
func (c *NativeConverter) convertPDF(ctx context.Context, path string) ([]Item, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer func() {
		_ = doc.Close()
	}()

	scale := c.opts.ImagesScale
	if scale <= 0 {
		scale = 1
	}

	var items []Item
	for page := 0; page < doc.NumPage(); page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageText, err := doc.Text(page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", page+1, err)
		}
		if strings.TrimSpace(pageText) != "" {
			items = append(items, paragraphItems(pageText)...)
			continue
		}

		if !c.opts.DoPictureDescription || c.describer == nil {
			items = append(items, Item{Kind: KindPicture, Text: ImagePlaceholder})
			continue
		}

		png, err := doc.ImagePNG(page, baseDPI*scale)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
		}
		description, err := c.describer.Describe(ctx, png, "image/png")
		if err != nil {
			return nil, fmt.Errorf("picture description failed for page %d: %w", page+1, err)
		}
		items = append(items, Item{Kind: KindPicture, Text: ImagePlaceholder + "\n" + strings.TrimSpace(description)})
	}

	return items, nil
}
