package handle

import "testing"

func TestTable_CreatePeekDestroy(t *testing.T) {
	tb := New[string]()

	h := tb.Create("queue-a")
	if h == NoHandle {
		t.Fatalf("Create returned NoHandle")
	}

	got, ok := tb.Peek(h)
	if !ok || got != "queue-a" {
		t.Fatalf("Peek(%d) = (%q, %v), want (%q, true)", h, got, ok, "queue-a")
	}

	if !tb.Update(h, "queue-a-renamed") {
		t.Fatalf("Update failed on live handle")
	}
	got, _ = tb.Peek(h)
	if got != "queue-a-renamed" {
		t.Fatalf("Update did not take effect, got %q", got)
	}

	tb.Destroy(h)
	if _, ok := tb.Peek(h); ok {
		t.Fatalf("Peek succeeded after Destroy")
	}
}

func TestTable_SlotReuseAfterDestroy(t *testing.T) {
	tb := New[int]()
	h1 := tb.Create(1)
	tb.Destroy(h1)
	h2 := tb.Create(2)
	if h2 != h1 {
		t.Fatalf("expected slot reuse, got fresh handle %d after destroying %d", h2, h1)
	}
	got, ok := tb.Peek(h2)
	if !ok || got != 2 {
		t.Fatalf("Peek(%d) = (%d, %v), want (2, true)", h2, got, ok)
	}
}

func TestTable_GetHoldsSlotOpenPastDestroy(t *testing.T) {
	tb := New[string]()
	h := tb.Create("q")

	held, ok := tb.Get(h) // refcount now 2
	if !ok || held != "q" {
		t.Fatalf("Get failed: (%q, %v)", held, ok)
	}

	tb.Destroy(h) // drops the Create reference; one Get-held reference remains
	if _, ok := tb.Peek(h); !ok {
		t.Fatalf("slot swept while a Get-held reference was still outstanding")
	}

	tb.Put(h) // release the Get reference; now swept
	if _, ok := tb.Peek(h); ok {
		t.Fatalf("slot not swept after matching Put")
	}
}

func TestTable_DestroyUnknownHandleIsNoop(t *testing.T) {
	tb := New[int]()
	tb.Destroy(Handle(999))
	tb.Destroy(NoHandle)
}

func TestTable_RefcountTracksGetPut(t *testing.T) {
	tb := New[int]()
	h := tb.Create(7)
	if rc := tb.Refcount(h); rc != 1 {
		t.Fatalf("Refcount after Create = %d, want 1", rc)
	}
	tb.Get(h)
	if rc := tb.Refcount(h); rc != 2 {
		t.Fatalf("Refcount after Get = %d, want 2", rc)
	}
	tb.Put(h)
	if rc := tb.Refcount(h); rc != 1 {
		t.Fatalf("Refcount after Put = %d, want 1", rc)
	}
}
