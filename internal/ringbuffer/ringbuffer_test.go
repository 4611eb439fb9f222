package ringbuffer

import "testing"

func TestWraparoundAliasesSlot(t *testing.T) {
	r := New[int](4)
	r.Set(0, 10)
	r.Set(4, 20)
	if got := r.At(0); got != 20 {
		t.Fatalf("expected write at index 4 to alias slot 0, got %d", got)
	}
	if got := r.At(4); got != 20 {
		t.Fatalf("expected read at index 4 to return last write, got %d", got)
	}
}

func TestNegativeIndexUsesConventionalModulus(t *testing.T) {
	r := New[string](3)
	r.Set(0, "zero")
	r.Set(1, "one")
	r.Set(2, "two")
	if got := r.At(-1); got != "two" {
		t.Fatalf("expected At(-1) to alias slot 2, got %q", got)
	}
	if got := r.At(-3); got != "zero" {
		t.Fatalf("expected At(-3) to alias slot 0, got %q", got)
	}
	if got := r.At(-4); got != "two" {
		t.Fatalf("expected At(-4) to alias slot 2, got %q", got)
	}
}

func TestCapacityFloor(t *testing.T) {
	r := New[int](0)
	if r.Capacity() != 1 {
		t.Fatalf("expected capacity to floor at 1, got %d", r.Capacity())
	}
}

func TestLastWriterWinsAcrossAliasedIndices(t *testing.T) {
	r := New[int](2)
	r.Set(0, 1)
	r.Set(2, 2)
	r.Set(4, 3)
	if got := r.At(0); got != 3 {
		t.Fatalf("expected last writer to win, got %d", got)
	}
}
