package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/storage"
	"github.com/nikhilbhutani/coursegen/pkg/textextract"
)

var ErrExtraction = errors.New("text extraction failed")

const (
	maxDownloadBytes = 64 << 20
	// Above this many characters the prompt is likely to exceed provider limits.
	largeContentChars = 500_000
)

type Extractor struct {
	storage storage.Storage
	ocr     *OCRService
}

func NewExtractor(blobs storage.Storage, ocr *OCRService) *Extractor {
	return &Extractor{storage: blobs, ocr: ocr}
}

// ExtractText downloads the referenced file and returns its cleaned text.
// Unsupported formats fail with textextract.ErrUnsupportedFormat, everything
// else with ErrExtraction.
func (e *Extractor) ExtractText(ctx context.Context, ref models.FileRef) (string, error) {
	rc, err := e.storage.Download(ctx, ref.Key)
	if err != nil {
		return "", fmt.Errorf("%w: download %s: %w", ErrExtraction, ref.Key, err)
	}
	data, err := io.ReadAll(io.LimitReader(rc, maxDownloadBytes))
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrExtraction, ref.Key, err)
	}

	text, err := e.extract(ctx, data, ref.MimeType)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: no text found in %s", ErrExtraction, ref.Filename)
	}

	if len(text) > largeContentChars {
		slog.Warn("large document content", "filename", ref.Filename, "chars", len(text))
	}
	slog.Info("extracted text", "filename", ref.Filename, "mime_type", ref.MimeType, "chars", len(text))
	return text, nil
}

func (e *Extractor) extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if models.DocumentType(mimeType) == models.DocTypeImage {
		if e.ocr == nil || !e.ocr.IsAvailable() {
			return "", fmt.Errorf("%w: %s (OCR unavailable)", textextract.ErrUnsupportedFormat, mimeType)
		}
		text, err := e.ocr.ExtractFromImage(ctx, data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		return textextract.Clean(text), nil
	}

	res, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), mimeType)
	if errors.Is(err, textextract.ErrUnsupportedFormat) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return strings.TrimSpace(res.Content), nil
}
