package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPreviewRunes bounds the text returned by FirstPageText.
const maxPreviewRunes = 2000

// Inspector reads purchase order PDFs returned by the backend.
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

func (i *Inspector) PageCount(data []byte) (int, error) {
	reader, err := open(data)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

// FirstPageText returns the plain text of page one, trimmed to a preview.
func (i *Inspector) FirstPageText(data []byte) (string, error) {
	reader, err := open(data)
	if err != nil {
		return "", err
	}
	if reader.NumPage() == 0 {
		return "", nil
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > maxPreviewRunes {
		text = string(runes[:maxPreviewRunes])
	}
	return text, nil
}

func open(data []byte) (reader *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("open pdf: empty document")
	}
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("open pdf: malformed document: %v", r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return reader, nil
}
