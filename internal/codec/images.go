// Package codec normalizes inbound image payloads into the form the remote
// multimodal endpoint accepts.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Image formats the pipeline recognizes. Anything undeclared defaults to jpeg.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// NormalizedImage is a cleaned base64 payload plus its declared format.
type NormalizedImage struct {
	// Data is the base64 payload with all transport wrapping removed.
	Data string

	// Format is "jpeg" or "png".
	Format string
}

// DataURI renders the image as an inline data URI for a multimodal message.
func (n NormalizedImage) DataURI() string {
	return fmt.Sprintf("data:image/%s;base64,%s", n.Format, n.Data)
}

// Normalize strips transport wrapping from a base64-encoded image payload and
// validates that it decodes. It handles a leading data-URI prefix
// (data:image/<fmt>;base64,) and whitespace injected into long base64 strings
// by intermediate transport layers. Pure function, no I/O.
func Normalize(raw string) (NormalizedImage, error) {
	format := FormatJPEG
	payload := raw

	if strings.HasPrefix(payload, "data:image") {
		commaIdx := strings.Index(payload, ",")
		if commaIdx == -1 {
			return NormalizedImage{}, invalidImage("data URI missing comma separator")
		}
		meta := strings.ToLower(payload[:commaIdx])
		switch {
		case strings.Contains(meta, FormatPNG):
			format = FormatPNG
		case strings.Contains(meta, FormatJPEG), strings.Contains(meta, "jpg"):
			format = FormatJPEG
		}
		payload = payload[commaIdx+1:]
	}

	// Proxies wrap long base64 lines; strip every whitespace variant.
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)

	if payload == "" {
		return NormalizedImage{}, invalidImage("empty image payload")
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return NormalizedImage{}, invalidImage(err.Error())
	}
	if len(decoded) == 0 {
		return NormalizedImage{}, invalidImage("image decodes to zero bytes")
	}

	return NormalizedImage{Data: payload, Format: format}, nil
}
