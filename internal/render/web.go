package render

import (
	"context"
	"fmt"
	"sync"
)

// Broadcaster pushes a render command to every connected viewer. The web hub
// implements this; pixels are drawn client-side by the browser's PDF engine.
type Broadcaster interface {
	BroadcastRender(page int)
}

// WebSurface is the default render surface. RenderPage fans the page number
// out to connected browsers; text extraction runs on the server through the
// pure-Go PDF parser.
type WebSurface struct {
	broadcaster Broadcaster

	mu        sync.Mutex
	extractor *TextExtractor
}

// NewWebSurface constructs the surface. The broadcaster is a required
// collaborator.
func NewWebSurface(b Broadcaster) (*WebSurface, error) {
	if b == nil {
		return nil, fmt.Errorf("render: broadcaster is required")
	}
	return &WebSurface{broadcaster: b}, nil
}

// LoadDocument parses the deck and returns its page count.
func (s *WebSurface) LoadDocument(ctx context.Context, path string) (int, error) {
	extractor, err := OpenTextExtractor(path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.extractor != nil {
		_ = s.extractor.Close()
	}
	s.extractor = extractor
	s.mu.Unlock()

	return extractor.PageCount(), nil
}

// RenderPage validates n and broadcasts the render command.
func (s *WebSurface) RenderPage(ctx context.Context, n int) error {
	s.mu.Lock()
	extractor := s.extractor
	s.mu.Unlock()

	if extractor == nil {
		return ErrNoDocument
	}
	if n < 1 || n > extractor.PageCount() {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, extractor.PageCount())
	}

	s.broadcaster.BroadcastRender(n)
	return nil
}

// ExtractText returns the plain text of page n.
func (s *WebSurface) ExtractText(ctx context.Context, n int) (string, error) {
	s.mu.Lock()
	extractor := s.extractor
	s.mu.Unlock()

	if extractor == nil {
		return "", ErrNoDocument
	}
	return extractor.PageText(n)
}

// Close releases the parsed document.
func (s *WebSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extractor == nil {
		return nil
	}
	err := s.extractor.Close()
	s.extractor = nil
	return err
}
