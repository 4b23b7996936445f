package ring

import "testing"

func TestPushPopOrderPreserved(t *testing.T) {
	buf := New(8)
	p, c := buf.Split()

	for i := 0; i < 5; i++ {
		if !p.Push(float32(i)) {
			t.Fatalf("push %d should not drop", i)
		}
	}

	for i := 0; i < 5; i++ {
		s, ok := c.Pop()
		if !ok {
			t.Fatalf("pop %d: expected a value", i)
		}
		if s != float32(i) {
			t.Fatalf("pop %d: got %v, want %v", i, s, float32(i))
		}
	}

	if _, ok := c.Pop(); ok {
		t.Fatalf("expected empty buffer after draining")
	}
}

func TestPopOnEmptyReturnsFalse(t *testing.T) {
	buf := New(4)
	_, c := buf.Split()
	if _, ok := c.Pop(); ok {
		t.Fatalf("expected false on empty buffer")
	}
}

func TestOverrunDropsNewestNeverReorders(t *testing.T) {
	buf := New(4)
	p, c := buf.Split()

	for i := 0; i < 10; i++ {
		p.Push(float32(i))
	}
	if got := p.Dropped(); got != 6 {
		t.Fatalf("dropped = %d, want 6", got)
	}

	var got []float32
	for {
		s, ok := c.Pop()
		if !ok {
			break
		}
		got = append(got, s)
	}
	want := []float32{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("popped %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("popped %v, want %v", got, want)
		}
	}
}

func TestOccupiedLenBounds(t *testing.T) {
	buf := New(16)
	p, c := buf.Split()

	if n := c.OccupiedLen(); n != 0 {
		t.Fatalf("occupied = %d, want 0", n)
	}
	for i := 0; i < 10; i++ {
		p.Push(float32(i))
	}
	if n := c.OccupiedLen(); n != 10 {
		t.Fatalf("occupied = %d, want 10", n)
	}
	c.Drain(make([]float32, 4))
	if n := c.OccupiedLen(); n != 6 {
		t.Fatalf("occupied = %d, want 6", n)
	}
}

func TestDrainStopsAtUnderrun(t *testing.T) {
	buf := New(16)
	p, c := buf.Split()
	p.PushAll([]float32{1, 2, 3})

	dst := make([]float32, 10)
	n := c.Drain(dst)
	if n != 3 {
		t.Fatalf("drained %d, want 3", n)
	}
}

func TestPushAllDropsOverflow(t *testing.T) {
	buf := New(4)
	p, _ := buf.Split()
	n := p.PushAll([]float32{1, 2, 3, 4, 5, 6})
	if n != 4 {
		t.Fatalf("wrote %d, want 4", n)
	}
	if p.Dropped() != 2 {
		t.Fatalf("dropped %d, want 2", p.Dropped())
	}
}
