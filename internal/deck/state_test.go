package deck

import (
	"testing"
)

func TestNewPageState(t *testing.T) {
	bus := NewBus()

	t.Run("rejects totalPages below 1", func(t *testing.T) {
		if _, err := NewPageState(0, bus); err == nil {
			t.Error("expected error for totalPages 0")
		}
		if _, err := NewPageState(-3, bus); err == nil {
			t.Error("expected error for negative totalPages")
		}
	})

	t.Run("rejects nil bus", func(t *testing.T) {
		if _, err := NewPageState(5, nil); err == nil {
			t.Error("expected error for nil bus")
		}
	})

	t.Run("starts at page 1", func(t *testing.T) {
		s, err := NewPageState(10, bus)
		if err != nil {
			t.Fatalf("NewPageState: %v", err)
		}
		if s.CurrentPage() != 1 {
			t.Errorf("expected current page 1, got %d", s.CurrentPage())
		}
		if s.TotalPages() != 10 {
			t.Errorf("expected total pages 10, got %d", s.TotalPages())
		}
	})
}

func TestSetCurrentPage(t *testing.T) {
	newStore := func(t *testing.T, total int) (*PageState, *[]PageChanged) {
		t.Helper()
		bus := NewBus()
		var events []PageChanged
		bus.Subscribe(EventPageChanged, func(e Event) {
			events = append(events, e.(PageChanged))
		})
		s, err := NewPageState(total, bus)
		if err != nil {
			t.Fatalf("NewPageState: %v", err)
		}
		return s, &events
	}

	t.Run("accepted change emits exactly one event", func(t *testing.T) {
		s, events := newStore(t, 10)
		if !s.SetCurrentPage(5) {
			t.Fatal("expected SetCurrentPage(5) to succeed")
		}
		if len(*events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(*events))
		}
		ev := (*events)[0]
		if ev.PreviousPage != 1 || ev.CurrentPage != 5 || ev.TotalPages != 10 {
			t.Errorf("unexpected event %+v", ev)
		}
	})

	t.Run("no-op same page returns false without event", func(t *testing.T) {
		s, events := newStore(t, 10)
		s.SetCurrentPage(5)
		if s.SetCurrentPage(5) {
			t.Error("expected repeat SetCurrentPage(5) to return false")
		}
		if len(*events) != 1 {
			t.Errorf("expected no extra event, got %d", len(*events))
		}
		if s.CurrentPage() != 5 {
			t.Errorf("state changed on no-op: %d", s.CurrentPage())
		}
	})

	t.Run("out of range is rejected with state unchanged", func(t *testing.T) {
		s, events := newStore(t, 10)
		for _, n := range []int{0, -1, 11, 100} {
			if s.SetCurrentPage(n) {
				t.Errorf("expected SetCurrentPage(%d) to fail", n)
			}
		}
		if len(*events) != 0 {
			t.Errorf("expected no events, got %d", len(*events))
		}
		if s.CurrentPage() != 1 {
			t.Errorf("state changed on rejection: %d", s.CurrentPage())
		}
	})

	t.Run("single page deck never moves", func(t *testing.T) {
		s, events := newStore(t, 1)
		if s.SetCurrentPage(1) {
			t.Error("expected no-op on single page deck")
		}
		if s.SetCurrentPage(2) {
			t.Error("expected rejection past the only page")
		}
		if len(*events) != 0 {
			t.Errorf("expected no events, got %d", len(*events))
		}
	})
}

func TestBoundaryChecks(t *testing.T) {
	bus := NewBus()
	s, err := NewPageState(3, bus)
	if err != nil {
		t.Fatalf("NewPageState: %v", err)
	}

	if !s.CanGoNext() {
		t.Error("expected CanGoNext at page 1 of 3")
	}
	if s.CanGoPrevious() {
		t.Error("expected CanGoPrevious false at page 1")
	}

	s.SetCurrentPage(3)
	if s.CanGoNext() {
		t.Error("expected CanGoNext false at last page")
	}
	if !s.CanGoPrevious() {
		t.Error("expected CanGoPrevious at last page")
	}
}

func TestListenerOrderAndIsolation(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(EventPageChanged, func(Event) { order = append(order, "first") })
	bus.Subscribe(EventPageChanged, func(Event) { panic("boom") })
	bus.Subscribe(EventPageChanged, func(Event) { order = append(order, "third") })

	s, err := NewPageState(4, bus)
	if err != nil {
		t.Fatalf("NewPageState: %v", err)
	}
	if !s.SetCurrentPage(2) {
		t.Fatal("expected page change to succeed")
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Errorf("expected surviving listeners in registration order, got %v", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.Subscribe(EventPageChanged, func(Event) { calls++ })

	bus.Publish(PageChanged{PreviousPage: 1, CurrentPage: 2, TotalPages: 3})
	unsub()
	bus.Publish(PageChanged{PreviousPage: 2, CurrentPage: 3, TotalPages: 3})

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
	// Double unsubscribe must be harmless
	unsub()
}

func TestBusTypeDispatch(t *testing.T) {
	bus := NewBus()
	var pageEvents, chatEvents int
	bus.Subscribe(EventPageChanged, func(Event) { pageEvents++ })
	bus.Subscribe(EventChatToggled, func(Event) { chatEvents++ })

	bus.Publish(ChatToggled{Open: true})
	if pageEvents != 0 || chatEvents != 1 {
		t.Errorf("expected chat listener only, got page=%d chat=%d", pageEvents, chatEvents)
	}
}
