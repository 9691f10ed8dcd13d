package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/errors"
)

const signedURLExpiryHours = 24

// Uploader exchanges raw file bytes for a time-limited signed URL via
// the provider's file endpoints. Neither call is retried here; retry is
// applied by the caller to the whole submission flow so a transient OCR
// failure does not force a re-upload.
type Uploader struct {
	baseURL      string
	uploadClient *http.Client
	signClient   *http.Client
	logger       *zap.Logger
}

// NewUploader creates an upload client. The signing call uses a shorter
// timeout than the upload call since it only moves metadata.
func NewUploader(baseURL string, uploadTimeout, signTimeout time.Duration, logger *zap.Logger) *Uploader {
	if uploadTimeout == 0 {
		uploadTimeout = 180 * time.Second
	}
	if signTimeout == 0 {
		signTimeout = 30 * time.Second
	}
	return &Uploader{
		baseURL:      baseURL,
		uploadClient: &http.Client{Timeout: uploadTimeout},
		signClient:   &http.Client{Timeout: signTimeout},
		logger:       logger,
	}
}

type uploadResponse struct {
	ID string `json:"id"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

// Upload sends the file as a multipart body and returns the provider's
// opaque file identifier.
func (u *Uploader) Upload(ctx context.Context, apiKey, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "ocr"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	u.logger.Debug("Uploading file",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)

	resp, err := u.uploadClient.Do(req)
	if err != nil {
		return "", classifyTransport(err, "file upload")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewStatus(errors.KindFileUpload, resp.StatusCode,
			fmt.Sprintf("file upload failed with status %d", resp.StatusCode))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, errors.KindInvalidResponse, "failed to decode upload response")
	}
	return result.ID, nil
}

// SignedURL exchanges a file identifier for a time-limited signed URL.
func (u *Uploader) SignedURL(ctx context.Context, apiKey, fileID string) (string, error) {
	url := fmt.Sprintf("%s/files/%s/url?expiry=%d", u.baseURL, fileID, signedURLExpiryHours)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := u.signClient.Do(req)
	if err != nil {
		return "", classifyTransport(err, "URL signing")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewStatus(errors.KindSignedURL, resp.StatusCode,
			fmt.Sprintf("signing failed with status %d", resp.StatusCode))
	}

	var result signedURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, errors.KindInvalidResponse, "failed to decode signing response")
	}
	return result.URL, nil
}
