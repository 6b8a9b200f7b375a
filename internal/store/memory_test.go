package store

import (
	"sync"
	"testing"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore(3)
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if got := len(store.All()); got != 3 {
		t.Errorf("len(All()) = %v, want 3", got)
	}
	if got := len(store.Pending()); got != 3 {
		t.Errorf("len(Pending()) = %v, want 3", got)
	}
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	store := NewMemoryStore(2)

	store.Set(1, Outcome{Pathname: "about", HasData: true})

	got, ok := store.Get(1)
	if !ok {
		t.Fatal("Get(1) ok = false, want true")
	}
	if got.Pathname != "about" || !got.HasData {
		t.Errorf("Get(1) = %+v", got)
	}

	if _, ok := store.Get(0); ok {
		t.Error("Get(0) ok = true for unset position")
	}
	if _, ok := store.Get(5); ok {
		t.Error("Get(5) ok = true for out of range position")
	}
}

func TestMemoryStore_AllKeepsPositionOrder(t *testing.T) {
	store := NewMemoryStore(3)

	// arrive out of order
	store.Set(2, Outcome{Pathname: "c"})
	store.Set(0, Outcome{Pathname: "a"})
	store.Set(1, Outcome{Pathname: "b"})

	all := store.All()
	for i, want := range []string{"a", "b", "c"} {
		if all[i].Pathname != want {
			t.Errorf("All()[%d].Pathname = %q, want %q", i, all[i].Pathname, want)
		}
	}
	if len(store.Pending()) != 0 {
		t.Errorf("Pending() = %v, want empty", store.Pending())
	}
}

func TestMemoryStore_DuplicatePathnamesKeptApart(t *testing.T) {
	store := NewMemoryStore(2)

	store.Set(0, Outcome{Pathname: "a", HasData: false})
	store.Set(1, Outcome{Pathname: "a", HasData: true})

	all := store.All()
	if all[0].HasData || !all[1].HasData {
		t.Errorf("duplicate routes collapsed: %+v", all)
	}
}

func TestMemoryStore_AllReturnsCopy(t *testing.T) {
	store := NewMemoryStore(1)
	store.Set(0, Outcome{Pathname: "a"})

	all := store.All()
	all[0].Pathname = "mutated"

	got, _ := store.Get(0)
	if got.Pathname != "a" {
		t.Errorf("store mutated through All() copy: %q", got.Pathname)
	}
}

func TestMemoryStore_SetOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Set() out of range should panic")
		}
	}()
	NewMemoryStore(1).Set(1, Outcome{})
}

// TestMemoryStore_ConcurrentSet verifies concurrent writers to distinct
// positions. Run with: go test -race ./internal/store/...
func TestMemoryStore_ConcurrentSet(t *testing.T) {
	const n = 100
	store := NewMemoryStore(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Set(i, Outcome{Pathname: "r"})
			_ = store.All()
		}(i)
	}
	wg.Wait()

	if pending := store.Pending(); len(pending) != 0 {
		t.Errorf("Pending() = %v, want empty", pending)
	}
}
