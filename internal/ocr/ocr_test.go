package ocr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

// writeScript drops an executable shell script into a temp dir so the
// subprocess plumbing can be exercised without a real tesseract install.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures are not portable to windows")
	}

	path := filepath.Join(t.TempDir(), "fake-tesseract")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)
	assert.NoError(t, err)
	return path
}

func TestTesseractExtractText(t *testing.T) {
	// Echo stdin back, the way tesseract's stdin/stdout mode streams text.
	script := writeScript(t, "cat\n")

	engine, err := NewTesseract(script, "")
	assert.NoError(t, err)

	text, err := engine.ExtractText(context.Background(), []byte("SUMMER SALE\n"))
	assert.NoError(t, err)
	assert.Equal(t, "SUMMER SALE", text)
}

func TestTesseractLanguageFlag(t *testing.T) {
	// Print the arguments so the test can see how the binary was invoked.
	script := writeScript(t, `echo "$@"`+"\n")

	engine, err := NewTesseract(script, "eng")
	assert.NoError(t, err)

	text, err := engine.ExtractText(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, "stdin stdout -l eng", text)
}

func TestTesseractFailure(t *testing.T) {
	script := writeScript(t, "echo 'could not read image' >&2\nexit 1\n")

	engine, err := NewTesseract(script, "")
	assert.NoError(t, err)

	_, err = engine.ExtractText(context.Background(), []byte{0x00})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "could not read image")
}

func TestNewTesseractMissingBinary(t *testing.T) {
	_, err := NewTesseract(filepath.Join(t.TempDir(), "no-such-binary"), "")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	text, err := Noop{}.ExtractText(context.Background(), []byte{0xFF, 0xD8})
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name    string
		engine  string
		wantErr bool
	}{
		{name: "empty defaults to noop", engine: ""},
		{name: "explicit noop", engine: "none"},
		{name: "unknown engine", engine: "gocr", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := New(tt.engine, "", "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.IsType(t, Noop{}, engine)
		})
	}
}
