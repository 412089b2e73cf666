package render

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
)

// TextExtractor wraps a parsed PDF for page counting and per-page plain-text
// extraction. The underlying reader is not safe for concurrent use, so calls
// are serialized here.
type TextExtractor struct {
	mu     sync.Mutex
	file   *os.File
	reader *pdf.Reader
	pages  int
}

// OpenTextExtractor parses the PDF at path.
func OpenTextExtractor(path string) (*TextExtractor, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	pages := r.NumPage()
	if pages < 1 {
		f.Close()
		return nil, fmt.Errorf("pdf %s has no pages", path)
	}
	return &TextExtractor{file: f, reader: r, pages: pages}, nil
}

// PageCount returns the number of pages in the document.
func (e *TextExtractor) PageCount() int {
	return e.pages
}

// PageText extracts the plain text of page n (1-indexed).
func (e *TextExtractor) PageText(n int) (string, error) {
	if n < 1 || n > e.pages {
		return "", fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, e.pages)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	page := e.reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("%w: page %d has no content", ErrPageOutOfRange, n)
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting text from page %d: %w", n, err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the underlying file handle.
func (e *TextExtractor) Close() error {
	return e.file.Close()
}
