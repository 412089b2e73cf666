package deck

import (
	"fmt"
	"sync"
)

// PageState is the single authoritative record of which slide is current and
// how many exist. totalPages is fixed for the life of the session; the
// current page moves only through SetCurrentPage. All other components read
// or mutate page state through this type, never around it.
type PageState struct {
	mu      sync.Mutex
	current int
	total   int
	bus     *Bus
}

// NewPageState constructs the store at page 1. totalPages must be at least 1
// and the bus is a required collaborator; violations are construction-time
// failures, not per-call ones.
func NewPageState(totalPages int, bus *Bus) (*PageState, error) {
	if totalPages < 1 {
		return nil, fmt.Errorf("totalPages must be >= 1, got %d", totalPages)
	}
	if bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	return &PageState{current: 1, total: totalPages, bus: bus}, nil
}

// CurrentPage returns the 1-indexed current page.
func (s *PageState) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// TotalPages returns the fixed page count.
func (s *PageState) TotalPages() int {
	return s.total
}

// CanGoNext reports whether a later page exists.
func (s *PageState) CanGoNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current < s.total
}

// CanGoPrevious reports whether an earlier page exists.
func (s *PageState) CanGoPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current > 1
}

// SetCurrentPage moves to page n. It fails closed: out-of-range values and
// the current page itself return false with state untouched and no event.
// An accepted change publishes exactly one PageChanged event, synchronously,
// before returning true. Callers must not re-enter SetCurrentPage from a
// PageChanged listener; that invites an event storm and is not guarded here.
func (s *PageState) SetCurrentPage(n int) bool {
	s.mu.Lock()
	if n < 1 || n > s.total || n == s.current {
		s.mu.Unlock()
		return false
	}
	prev := s.current
	s.current = n
	s.mu.Unlock()

	s.bus.Publish(PageChanged{
		PreviousPage: prev,
		CurrentPage:  n,
		TotalPages:   s.total,
	})
	return true
}
