package storage

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidPDF      = errors.New("invalid PDF")
)

// Kind selects the validation rules and key prefix for an upload.
type Kind string

const (
	KindCover Kind = "cover"
	KindPDF   Kind = "pdf"
)

func (k Kind) Valid() bool {
	return k == KindCover || k == KindPDF
}

var coverTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Inspect sniffs the content and returns its MIME type and file extension.
// PDFs must parse and contain at least one page.
func Inspect(kind Kind, data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	sniffed := http.DetectContentType(data)

	switch kind {
	case KindCover:
		ext, ok := coverTypes[sniffed]
		if !ok {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, sniffed)
		}
		return sniffed, ext, nil
	case KindPDF:
		if sniffed != "application/pdf" {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, sniffed)
		}
		pages, err := PageCount(data)
		if err != nil {
			return "", "", err
		}
		if pages < 1 {
			return "", "", fmt.Errorf("%w: no pages", ErrInvalidPDF)
		}
		return "application/pdf", ".pdf", nil
	}
	return "", "", fmt.Errorf("%w: kind %q", ErrUnsupportedType, kind)
}

// PageCount opens data as a PDF document.
func PageCount(data []byte) (n int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return r.NumPage(), nil
}
