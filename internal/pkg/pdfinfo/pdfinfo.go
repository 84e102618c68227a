// Package pdfinfo reads document metadata from PDF bytes without extracting text.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var ErrEmpty = errors.New("empty pdf")

// PageCount parses b as a PDF and returns its page count.
func PageCount(b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, ErrEmpty
	}
	// The parser panics on some truncated inputs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf failed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return 0, fmt.Errorf("open pdf failed: %w", err)
	}
	return reader.NumPage(), nil
}
