// Package render defines the surface the navigation layer draws on and the
// two implementations DeckPilot ships: a web surface that pushes render
// commands to connected browsers, and a Chrome surface that additionally
// rasterizes pages server-side through headless Chrome.
package render

import (
	"context"
	"errors"
)

var (
	// ErrNoDocument means a page operation ran before LoadDocument succeeded.
	ErrNoDocument = errors.New("render: no document loaded")
	// ErrPageOutOfRange means the requested page is outside [1, totalPages].
	ErrPageOutOfRange = errors.New("render: page out of range")
)

// Surface is the collaborator responsible for drawing a given page and
// extracting its text. Implementations validate page bounds themselves;
// callers may pass any page number.
type Surface interface {
	// LoadDocument opens the deck at path and returns its page count.
	LoadDocument(ctx context.Context, path string) (totalPages int, err error)
	// RenderPage draws page n. Fails with ErrNoDocument or ErrPageOutOfRange.
	RenderPage(ctx context.Context, n int) error
	// ExtractText returns the plain text of page n, same preconditions.
	ExtractText(ctx context.Context, n int) (string, error)
}
