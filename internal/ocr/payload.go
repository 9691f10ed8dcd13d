package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/errors"
)

const defaultImageMIME = "image/jpeg"

// Preparer turns a document into its wire payload. PDFs go through the
// upload-then-sign exchange; images are embedded inline as data URLs
// without any network call. Failures here are terminal for the attempt
// since file state does not change between retries.
type Preparer struct {
	uploader *Uploader
	logger   *zap.Logger
}

func NewPreparer(uploader *Uploader, logger *zap.Logger) *Preparer {
	return &Preparer{
		uploader: uploader,
		logger:   logger,
	}
}

// Prepare reads the document bytes and constructs exactly one payload
// variant, chosen solely by content type.
func (p *Preparer) Prepare(ctx context.Context, apiKey string, doc Document) (DocumentPayload, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return DocumentPayload{}, errors.Wrap(err, errors.KindFileRead,
			fmt.Sprintf("failed to read %s", doc.Name))
	}

	switch doc.Type {
	case TypePDF:
		fileID, err := p.uploader.Upload(ctx, apiKey, doc.Name, data)
		if err != nil {
			return DocumentPayload{}, err
		}
		p.logger.Debug("File uploaded", zap.String("file_id", fileID))

		signedURL, err := p.uploader.SignedURL(ctx, apiKey, fileID)
		if err != nil {
			return DocumentPayload{}, err
		}
		return DocumentReference(signedURL), nil

	case TypeImage:
		mime := doc.MIMEType
		if mime == "" {
			mime = defaultImageMIME
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		return InlineImage("data:" + mime + ";base64," + encoded), nil

	default:
		ext := strings.ToLower(filepath.Ext(doc.Path))
		return DocumentPayload{}, errors.New(errors.KindUnsupportedFormat,
			fmt.Sprintf("unsupported file format %q", ext))
	}
}
