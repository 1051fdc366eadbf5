package core

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestIdentifiersReuseFreedSlots(t *testing.T) {
	ids := NewIdentifiers[string]()

	a := ids.Acquire("a")
	b := ids.Acquire("b")
	if a == 0 || b == 0 {
		t.Fatalf("null id issued: a=%d b=%d", a, b)
	}
	if a == b {
		t.Fatalf("duplicate id %d", a)
	}

	if v, err := ids.Release(a); err != nil || v != "a" {
		t.Fatalf("Release(%d) = %q, %v", a, v, err)
	}
	if _, ok := ids.Lookup(a); ok {
		t.Errorf("released id %d still resolves", a)
	}

	c := ids.Acquire("c")
	if c != a {
		t.Errorf("expected freed slot %d to be reused, got %d", a, c)
	}
	if ids.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ids.Len())
	}
}

func TestIdentifiersDoubleRelease(t *testing.T) {
	ids := NewIdentifiers[int]()
	id := ids.Acquire(7)
	if _, err := ids.Release(id); err != nil {
		t.Fatalf("first release: %v", err)
	}
	_, err := ids.Release(id)
	if !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("second release error = %v, want ErrInvalidHandle", err)
	}
	if _, err := ids.Release(0); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("release of null id error = %v, want ErrInvalidHandle", err)
	}
}
