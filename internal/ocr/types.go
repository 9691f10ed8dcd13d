// Package ocr implements the client side of the provider's document
// OCR protocol: payload preparation, upload and signing, submission,
// error classification, and response transformation.
package ocr

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gmsas95/docuscan/internal/pricing"
)

// DefaultModel is the fixed OCR model identifier sent with every submission.
const DefaultModel = "mistral-ocr-latest"

// DocumentType classifies a document by its content type.
type DocumentType string

const (
	TypePDF     DocumentType = "pdf"
	TypeImage   DocumentType = "image"
	TypeUnknown DocumentType = "unknown"
)

// Document describes a file to be processed. Immutable for the duration
// of one processing call.
type Document struct {
	ID             string
	Path           string
	Name           string
	Type           DocumentType
	MIMEType       string
	EstimatedPages int
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Classify determines the document type and MIME string from a file
// extension. Unknown image subtypes default to image/jpeg at payload
// construction time.
func Classify(path string) (DocumentType, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return TypePDF, "application/pdf"
	}
	if mime, ok := imageMIMETypes[ext]; ok {
		return TypeImage, mime
	}
	return TypeUnknown, ""
}

// TableFormat selects the table representation requested from the provider.
type TableFormat string

const (
	TableFormatMarkdown TableFormat = "markdown"
	TableFormatHTML     TableFormat = "html"
)

// Settings controls optional provider behavior for one submission.
// Zero values mean "use provider defaults" and are omitted from the wire.
type Settings struct {
	IncludeImages       bool
	TableFormat         TableFormat
	ExtractHeaderFooter bool
}

// Payload types, exactly one variant per submission.
const (
	payloadTypeDocumentURL = "document_url"
	payloadTypeImageURL    = "image_url"
)

// DocumentPayload is the wire representation of the document: either a
// signed URL reference (PDFs) or an inline data URL (images).
type DocumentPayload struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// DocumentReference builds the payload variant referencing an uploaded file.
func DocumentReference(signedURL string) DocumentPayload {
	return DocumentPayload{Type: payloadTypeDocumentURL, DocumentURL: signedURL}
}

// InlineImage builds the payload variant embedding image bytes as a data URL.
func InlineImage(dataURL string) DocumentPayload {
	return DocumentPayload{Type: payloadTypeImageURL, ImageURL: dataURL}
}

// Submission is the request body for POST /ocr. Optional fields are
// omitted entirely when unset so that provider defaults apply.
type Submission struct {
	Model               string          `json:"model"`
	Document            DocumentPayload `json:"document"`
	IncludeImageBase64  bool            `json:"include_image_base64,omitempty"`
	TableFormat         string          `json:"table_format,omitempty"`
	ExtractHeaderFooter bool            `json:"extract_header_footer,omitempty"`
}

// NewSubmission builds the wire request for a prepared payload.
func NewSubmission(payload DocumentPayload, settings Settings) Submission {
	return Submission{
		Model:               DefaultModel,
		Document:            payload,
		IncludeImageBase64:  settings.IncludeImages,
		TableFormat:         string(settings.TableFormat),
		ExtractHeaderFooter: settings.ExtractHeaderFooter,
	}
}

// Wire response shapes.

type Response struct {
	Pages     []WirePage `json:"pages"`
	Model     string     `json:"model"`
	UsageInfo UsageInfo  `json:"usage_info"`
}

// UsageInfo carries billing metadata. PagesProcessed is the billable
// unit and may differ from len(Pages).
type UsageInfo struct {
	PagesProcessed int    `json:"pages_processed"`
	DocSizeBytes   *int64 `json:"doc_size_bytes"`
}

type WirePage struct {
	Index      int             `json:"index"`
	Markdown   string          `json:"markdown"`
	Tables     []WireTable     `json:"tables"`
	Images     []WireImage     `json:"images"`
	Dimensions *WireDimensions `json:"dimensions"`
}

type WireTable struct {
	ID       string `json:"id"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

type WireImage struct {
	ID           string  `json:"id"`
	TopLeftX     float64 `json:"top_left_x"`
	TopLeftY     float64 `json:"top_left_y"`
	BottomRightX float64 `json:"bottom_right_x"`
	BottomRightY float64 `json:"bottom_right_y"`
	ImageBase64  string  `json:"image_base64"`
}

type WireDimensions struct {
	DPI    int `json:"dpi"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Domain result shapes, immutable once constructed.

type Result struct {
	DocumentID  string         `json:"document_id" yaml:"document_id"`
	Pages       []Page         `json:"pages" yaml:"pages"`
	Model       string         `json:"model" yaml:"model"`
	Cost        pricing.Amount `json:"cost" yaml:"cost"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
	CompletedAt time.Time      `json:"completed_at" yaml:"completed_at"`
}

type Page struct {
	Index      int         `json:"index" yaml:"index"`
	Markdown   string      `json:"markdown" yaml:"markdown"`
	Tables     []Table     `json:"tables" yaml:"tables"`
	Images     []Image     `json:"images" yaml:"images"`
	Dimensions *Dimensions `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

type Table struct {
	ID      string `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
}

type Image struct {
	ID          string     `json:"id" yaml:"id"`
	BoundingBox [4]float64 `json:"bounding_box" yaml:"bounding_box"`
	Base64      string     `json:"base64,omitempty" yaml:"base64,omitempty"`
}

type Dimensions struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Unit   string `json:"unit" yaml:"unit"`
}

// Progress is a snapshot emitted at processing milestones.
type Progress struct {
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
	StartedAt   time.Time `json:"started_at"`
}
