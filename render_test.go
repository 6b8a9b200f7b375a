package prerender

import (
	"sync"
	"testing"
)

func TestResponse_FirstCallWins(t *testing.T) {
	res := NewResponse()

	if _, ok := res.Page(); ok {
		t.Fatal("Page() reported completion before JSON was called")
	}

	res.JSON(Page{HTML: "first"})
	res.JSON(Page{HTML: "second"})

	page, ok := res.Page()
	if !ok {
		t.Fatal("Page() reported no completion after JSON")
	}
	if page.HTML != "first" {
		t.Errorf("HTML = %q, want %q", page.HTML, "first")
	}
	if res.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", res.Calls())
	}

	select {
	case <-res.Done():
	default:
		t.Error("Done() not closed after JSON")
	}
}

func TestResponse_ConcurrentJSON(t *testing.T) {
	res := NewResponse()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.JSON(Page{HTML: "x"})
		}()
	}
	wg.Wait()

	if res.Calls() != 50 {
		t.Errorf("Calls() = %d, want 50", res.Calls())
	}
	if _, ok := res.Page(); !ok {
		t.Error("Page() reported no completion")
	}
}
