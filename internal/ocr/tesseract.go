package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract binary as a subprocess, feeding the image on
// stdin and reading recognized text from stdout. Each call is one short-lived
// process, so the engine is safe for concurrent use.
type Tesseract struct {
	execPath string
	language string
}

// NewTesseract resolves the binary up front so a missing install fails at
// startup rather than on the first creative.
func NewTesseract(binary, language string) (*Tesseract, error) {
	if binary == "" {
		binary = "tesseract"
	}
	execPath, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("locating ocr binary %q: %w", binary, err)
	}

	return &Tesseract{
		execPath: execPath,
		language: language,
	}, nil
}

func (t *Tesseract) ExtractText(ctx context.Context, image []byte) (string, error) {
	args := []string{"stdin", "stdout"}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}

	// Build command with context
	cmd := exec.CommandContext(ctx, t.execPath, args...)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("running ocr: %v: %s", err, msg)
		}
		return "", fmt.Errorf("running ocr: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
