package codec

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/tasklens/tasklens/internal/domain"
)

func TestNormalize_PlainBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("test image data"))

	img, err := Normalize(encoded)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if img.Data != encoded {
		t.Errorf("Data mismatch: got %q", img.Data)
	}
	if img.Format != FormatJPEG {
		t.Errorf("Expected default format jpeg, got %s", img.Format)
	}
}

func TestNormalize_DataURIPrefix(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4E, 0x47})

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"png", "data:image/png;base64,", FormatPNG},
		{"jpeg", "data:image/jpeg;base64,", FormatJPEG},
		{"jpg normalized", "data:image/jpg;base64,", FormatJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Normalize(tt.prefix + encoded)
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if img.Format != tt.want {
				t.Errorf("Expected format %s, got %s", tt.want, img.Format)
			}
			if img.Data != encoded {
				t.Errorf("Prefix not stripped: got %q", img.Data)
			}
		})
	}
}

func TestNormalize_StripsInjectedWhitespace(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("a longer payload that wraps"))

	// Simulate a proxy wrapping long lines.
	var corrupted strings.Builder
	for i, r := range encoded {
		if i > 0 && i%8 == 0 {
			corrupted.WriteString("\r\n\t ")
		}
		corrupted.WriteRune(r)
	}

	img, err := Normalize("data:image/png;base64," + corrupted.String())
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if img.Data != encoded {
		t.Errorf("Whitespace not stripped: got %q, want %q", img.Data, encoded)
	}
	if _, err := base64.StdEncoding.DecodeString(img.Data); err != nil {
		t.Errorf("Normalized payload not decodable: %v", err)
	}
}

func TestNormalize_DataURI(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("x"))
	img, err := Normalize("data:image/png;base64," + encoded)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	want := "data:image/png;base64," + encoded
	if img.DataURI() != want {
		t.Errorf("DataURI mismatch: got %q, want %q", img.DataURI(), want)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\t"},
		{"not base64", "!!!not-base64!!!"},
		{"data uri without comma", "data:image/png;base64"},
		{"empty after prefix", "data:image/png;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if err == nil {
				t.Fatal("Expected error for invalid input")
			}
			var perr *domain.PipelineError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected PipelineError, got %T", err)
			}
			if perr.Type != domain.ErrorTypeInvalidImage {
				t.Errorf("Expected invalid_image error type, got %s", perr.Type)
			}
		})
	}
}
