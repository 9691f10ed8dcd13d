package ocr

import (
	"time"

	"github.com/gmsas95/docuscan/internal/pricing"
)

// dimensionUnit is the fixed unit label for page dimensions.
const dimensionUnit = "px"

// Transform converts the wire response into the caller-facing result.
// Pages map 1:1 preserving provider order; cost is computed once from
// the billable pages-processed count, which may differ from the number
// of pages returned.
func Transform(documentID string, resp *Response, cost pricing.CostFn, startedAt, completedAt time.Time) *Result {
	pages := make([]Page, 0, len(resp.Pages))
	for _, wp := range resp.Pages {
		pages = append(pages, transformPage(wp))
	}

	return &Result{
		DocumentID:  documentID,
		Pages:       pages,
		Model:       resp.Model,
		Cost:        cost(resp.UsageInfo.PagesProcessed),
		Duration:    completedAt.Sub(startedAt),
		CompletedAt: completedAt,
	}
}

func transformPage(wp WirePage) Page {
	tables := make([]Table, 0, len(wp.Tables))
	for _, wt := range wp.Tables {
		tables = append(tables, Table{
			ID:      wt.ID,
			Content: tableContent(wt),
		})
	}

	images := make([]Image, 0, len(wp.Images))
	for _, wi := range wp.Images {
		images = append(images, Image{
			ID:          wi.ID,
			BoundingBox: [4]float64{wi.TopLeftX, wi.TopLeftY, wi.BottomRightX, wi.BottomRightY},
			Base64:      wi.ImageBase64,
		})
	}

	var dims *Dimensions
	if wp.Dimensions != nil {
		dims = &Dimensions{
			Width:  wp.Dimensions.Width,
			Height: wp.Dimensions.Height,
			Unit:   dimensionUnit,
		}
	}

	return Page{
		Index:      wp.Index,
		Markdown:   wp.Markdown,
		Tables:     tables,
		Images:     images,
		Dimensions: dims,
	}
}

// tableContent prefers markdown, falls back to HTML, then empty.
func tableContent(wt WireTable) string {
	if wt.Markdown != "" {
		return wt.Markdown
	}
	return wt.HTML
}
