// Package nav mediates between the page state store and the render surface.
// It is the only writer of page state; tools and UI presenters go through it.
package nav

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"deckpilot-mcp-server/internal/deck"
	"deckpilot-mcp-server/internal/render"
)

// Coordinator translates page-turn intents into validated state changes and
// drives the render surface. Rendering is decoupled from navigation: a
// failed or slow render never corrupts page state, it is only logged.
type Coordinator struct {
	state         *deck.PageState
	surface       render.Surface
	renderTimeout time.Duration
	unsubscribe   func()

	// renderMu serializes event-driven renders; renderGen marks the newest
	// requested page so a superseded render is skipped instead of painting
	// an older page after a newer one.
	renderMu  sync.Mutex
	renderGen atomic.Uint64
}

// NewCoordinator wires the coordinator to the store's change events. All
// three collaborators are required.
func NewCoordinator(state *deck.PageState, surface render.Surface, bus *deck.Bus, renderTimeout time.Duration) (*Coordinator, error) {
	if state == nil {
		return nil, fmt.Errorf("nav: page state is required")
	}
	if surface == nil {
		return nil, fmt.Errorf("nav: render surface is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("nav: event bus is required")
	}
	if renderTimeout <= 0 {
		renderTimeout = 10 * time.Second
	}

	c := &Coordinator{
		state:         state,
		surface:       surface,
		renderTimeout: renderTimeout,
	}
	c.unsubscribe = bus.Subscribe(deck.EventPageChanged, c.onPageChanged)
	return c, nil
}

// onPageChanged kicks off an asynchronous render of the new page. The event
// carries the already-updated page number, so a concurrent later change
// cannot make this render a wrong page for its event. Renders run one at a
// time, and a render that has been superseded by a later page change is
// dropped: the newest requested page is always the last one painted.
func (c *Coordinator) onPageChanged(e deck.Event) {
	changed, ok := e.(deck.PageChanged)
	if !ok {
		return
	}
	gen := c.renderGen.Add(1)
	go func() {
		c.renderMu.Lock()
		defer c.renderMu.Unlock()
		if c.renderGen.Load() != gen {
			return // a newer page has been requested since
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.renderTimeout)
		defer cancel()
		if err := c.surface.RenderPage(ctx, changed.CurrentPage); err != nil {
			log.Printf("nav: render of page %d failed: %v", changed.CurrentPage, err)
		}
	}()
}

// NextPage advances one page when possible.
func (c *Coordinator) NextPage() bool {
	if !c.state.CanGoNext() {
		return false
	}
	return c.GoToPage(c.state.CurrentPage() + 1)
}

// PreviousPage steps back one page when possible.
func (c *Coordinator) PreviousPage() bool {
	if !c.state.CanGoPrevious() {
		return false
	}
	return c.GoToPage(c.state.CurrentPage() - 1)
}

// GoToPage delegates to the store and returns its result directly; the store
// owns validation.
func (c *Coordinator) GoToPage(n int) bool {
	return c.state.SetCurrentPage(n)
}

// CurrentPage returns the store's current page.
func (c *Coordinator) CurrentPage() int { return c.state.CurrentPage() }

// TotalPages returns the store's page count.
func (c *Coordinator) TotalPages() int { return c.state.TotalPages() }

// CanGoNext reports whether a later page exists.
func (c *Coordinator) CanGoNext() bool { return c.state.CanGoNext() }

// CanGoPrevious reports whether an earlier page exists.
func (c *Coordinator) CanGoPrevious() bool { return c.state.CanGoPrevious() }

// PageText extracts the text of the current page. Failures (no document,
// stale index) surface to the caller unchanged.
func (c *Coordinator) PageText(ctx context.Context) (string, error) {
	return c.surface.ExtractText(ctx, c.state.CurrentPage())
}

// RenderCurrent forces a synchronous render of the current page. Used once
// at startup; page changes afterwards render through the event listener.
func (c *Coordinator) RenderCurrent(ctx context.Context) error {
	return c.surface.RenderPage(ctx, c.state.CurrentPage())
}

// Close detaches the coordinator from the event bus.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}
