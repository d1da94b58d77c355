package document

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// OCRService shells out to tesseract for image uploads.
type OCRService struct {
	tesseractPath string

	once      sync.Once
	available bool
}

func NewOCRService() *OCRService {
	path, _ := exec.LookPath("tesseract")
	if path == "" {
		path = "tesseract"
	}
	return &OCRService{tesseractPath: path}
}

func (o *OCRService) IsAvailable() bool {
	o.once.Do(func() {
		o.available = exec.Command(o.tesseractPath, "--version").Run() == nil
	})
	return o.available
}

// ExtractFromImage feeds the image bytes to tesseract on stdin.
func (o *OCRService) ExtractFromImage(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, o.tesseractPath, "stdin", "stdout", "-l", "eng")
	cmd.Stdin = bytes.NewReader(image)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}
