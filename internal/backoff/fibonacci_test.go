package backoff

import "testing"

func TestFibonacciSequence(t *testing.T) {
	want := []byte{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 29}

	f := New()
	for i, w := range want {
		got := f.Value()
		if i == 0 {
			if got != 1 {
				t.Fatalf("initial Value() = %d, want 1", got)
			}
		}
		if f.Value() != w {
			t.Fatalf("step %d: Value() = %d, want %d", i, f.Value(), w)
		}
		f.Next()
	}
}

func TestFibonacciReset(t *testing.T) {
	f := New()
	for i := 0; i < 5; i++ {
		f.Next()
	}
	f.Reset()
	if f.Value() != 1 {
		t.Fatalf("after Reset, Value() = %d, want 1", f.Value())
	}
	f.Next()
	if f.Value() != 1 {
		t.Fatalf("first Next after Reset = %d, want 1", f.Value())
	}
}

func TestFibonacciNeverExceedsCeiling(t *testing.T) {
	f := New()
	for i := 0; i < 200; i++ {
		f.Next()
		if f.Value() > 60 {
			t.Fatalf("step %d: Value() = %d exceeds 60s ceiling", i, f.Value())
		}
	}
}
