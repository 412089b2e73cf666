package mcp

import (
	"context"
	"fmt"
)

// =============================================================================
// DECK NAVIGATION TOOLS
// =============================================================================
//
// Six tools, one per navigation operation. Tool names and the
// {success, message, ...} result shape are the contract the remote voice
// agent integration depends on; do not change them.

const notReadyMessage = "Presentation not ready"

func notReady() map[string]interface{} {
	return map[string]interface{}{"success": false, "message": notReadyMessage}
}

// NextPageTool advances the deck one page.
type NextPageTool struct {
	binding *Binding
}

func (t *NextPageTool) Name() string { return "nextPage" }
func (t *NextPageTool) Description() string {
	return `Advance the presentation to the next slide.

Fails softly when already on the last page; check canGoNext in the result.
Use goToPage for arbitrary jumps.`
}
func (t *NextPageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *NextPageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c := t.binding.Coordinator()
	if c == nil {
		return notReady(), nil
	}

	if !c.NextPage() {
		return map[string]interface{}{
			"success":     false,
			"currentPage": c.CurrentPage(),
			"totalPages":  c.TotalPages(),
			"message":     "Already on the last page",
		}, nil
	}
	return map[string]interface{}{
		"success":     true,
		"currentPage": c.CurrentPage(),
		"totalPages":  c.TotalPages(),
		"message":     fmt.Sprintf("Moved to page %d of %d", c.CurrentPage(), c.TotalPages()),
	}, nil
}

// PreviousPageTool steps the deck back one page.
type PreviousPageTool struct {
	binding *Binding
}

func (t *PreviousPageTool) Name() string { return "previousPage" }
func (t *PreviousPageTool) Description() string {
	return `Step the presentation back to the previous slide.

Fails softly when already on the first page.`
}
func (t *PreviousPageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *PreviousPageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c := t.binding.Coordinator()
	if c == nil {
		return notReady(), nil
	}

	if !c.PreviousPage() {
		return map[string]interface{}{
			"success":     false,
			"currentPage": c.CurrentPage(),
			"totalPages":  c.TotalPages(),
			"message":     "Already on the first page",
		}, nil
	}
	return map[string]interface{}{
		"success":     true,
		"currentPage": c.CurrentPage(),
		"totalPages":  c.TotalPages(),
		"message":     fmt.Sprintf("Moved to page %d of %d", c.CurrentPage(), c.TotalPages()),
	}, nil
}

// GoToPageTool jumps to an arbitrary page.
type GoToPageTool struct {
	binding *Binding
}

func (t *GoToPageTool) Name() string { return "goToPage" }
func (t *GoToPageTool) Description() string {
	return `Jump directly to a slide by page number (1-indexed).

Accepts {"pageNumber": 3} or a bare number. Numeric strings like "3" are
coerced. Out-of-range or non-integer input fails without moving the deck.`
}
func (t *GoToPageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pageNumber": map[string]interface{}{
				"type":        "integer",
				"description": "Target page, 1-indexed",
			},
		},
		"required": []string{"pageNumber"},
	}
}
func (t *GoToPageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c := t.binding.Coordinator()
	if c == nil {
		return notReady(), nil
	}

	page, ok := coercePageNumber(args["pageNumber"])
	if !ok || page < 1 || page > c.TotalPages() {
		return map[string]interface{}{
			"success": false,
			"message": fmt.Sprintf("Invalid page number: must be an integer between 1 and %d", c.TotalPages()),
		}, nil
	}

	if !c.GoToPage(page) {
		// Valid target equal to the current page: nothing to do, nothing wrong.
		return map[string]interface{}{
			"success":     true,
			"currentPage": c.CurrentPage(),
			"totalPages":  c.TotalPages(),
			"message":     fmt.Sprintf("Already on page %d of %d", c.CurrentPage(), c.TotalPages()),
		}, nil
	}
	return map[string]interface{}{
		"success":     true,
		"currentPage": c.CurrentPage(),
		"totalPages":  c.TotalPages(),
		"message":     fmt.Sprintf("Jumped to page %d of %d", page, c.TotalPages()),
	}, nil
}

// GetCurrentPageTool reads the current page.
type GetCurrentPageTool struct {
	binding *Binding
}

func (t *GetCurrentPageTool) Name() string { return "getCurrentPage" }
func (t *GetCurrentPageTool) Description() string {
	return "Read the current slide number and total page count. Use before navigating to avoid redundant jumps."
}
func (t *GetCurrentPageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *GetCurrentPageTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c := t.binding.Coordinator()
	if c == nil {
		return notReady(), nil
	}
	return map[string]interface{}{
		"success":       true,
		"currentPage":   c.CurrentPage(),
		"totalPages":    c.TotalPages(),
		"canGoNext":     c.CanGoNext(),
		"canGoPrevious": c.CanGoPrevious(),
		"message":       fmt.Sprintf("Currently on page %d of %d", c.CurrentPage(), c.TotalPages()),
	}, nil
}

// GetTotalPagesTool reads the deck size.
type GetTotalPagesTool struct {
	binding *Binding
}

func (t *GetTotalPagesTool) Name() string { return "getTotalPages" }
func (t *GetTotalPagesTool) Description() string {
	return "Read the total number of slides in the deck."
}
func (t *GetTotalPagesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *GetTotalPagesTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c := t.binding.Coordinator()
	if c == nil {
		return notReady(), nil
	}
	return map[string]interface{}{
		"success":    true,
		"totalPages": c.TotalPages(),
		"message":    fmt.Sprintf("The deck has %d pages", c.TotalPages()),
	}, nil
}

// GetPageTextTool extracts the text of the current slide.
type GetPageTextTool struct {
	binding *Binding
}

func (t *GetPageTextTool) Name() string { return "getPageText" }
func (t *GetPageTextTool) Description() string {
	return `Extract the plain text of the current slide.

Use this to ground answers about what is on screen instead of guessing from
slide titles. Fails when no document is loaded.`
}
func (t *GetPageTextTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *GetPageTextTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c := t.binding.Coordinator()
	if c == nil {
		return notReady(), nil
	}

	text, err := c.PageText(ctx)
	if err != nil {
		return map[string]interface{}{
			"success": false,
			"message": "Failed to extract page text",
			"error":   err.Error(),
		}, nil
	}
	return map[string]interface{}{
		"success":        true,
		"currentPage":    c.CurrentPage(),
		"text":           text,
		"characterCount": len(text),
		"message":        fmt.Sprintf("Extracted text of page %d", c.CurrentPage()),
	}, nil
}
