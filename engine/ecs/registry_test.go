package ecs

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
)

type position struct{ X, Y float32 }
type tag struct{}
type children struct{ Of []Entity }

type recorder struct {
	calls []string
	err   error
}

func (rec *recorder) hooks(name string) HookFuncs {
	return HookFuncs{
		Attach: func(r *Registry, e Entity) error {
			rec.calls = append(rec.calls, name+".attach")
			return rec.err
		},
		Update: func(r *Registry, e Entity) error {
			rec.calls = append(rec.calls, name+".update")
			return rec.err
		},
		Detach: func(r *Registry, e Entity) error {
			rec.calls = append(rec.calls, name+".detach")
			return rec.err
		},
	}
}

func equalCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestEntityGenerations(t *testing.T) {
	r := NewRegistry()
	a := r.Create()
	if a.IsNull() || !r.Alive(a) {
		t.Fatalf("fresh entity %s not alive", a)
	}
	if err := r.Destroy(a); err != nil {
		t.Fatal(err)
	}
	if r.Alive(a) {
		t.Errorf("destroyed entity %s still alive", a)
	}
	b := r.Create()
	if b.Index() != a.Index() {
		t.Errorf("index not reused: %s vs %s", a, b)
	}
	if b.Generation() == a.Generation() {
		t.Errorf("generation not bumped: %s vs %s", a, b)
	}
	if r.Alive(Null) {
		t.Error("null entity reported alive")
	}
}

func TestLifecycleHooksFire(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	Register[position](r, rec.hooks("position"))

	e := r.Create()
	if _, err := Emplace(r, e, position{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := Patch(r, e, func(p *position) { p.X = 5 }); err != nil {
		t.Fatal(err)
	}
	if p, _ := Get[position](r, e); p.X != 5 || p.Y != 2 {
		t.Errorf("patched value = %+v", *p)
	}
	if _, err := Emplace(r, e, position{7, 7}); err != nil {
		t.Fatal(err)
	}
	if err := Remove[position](r, e); err != nil {
		t.Fatal(err)
	}
	if Has[position](r, e) {
		t.Error("component still present after Remove")
	}
	// Removing again is a no-op.
	if err := Remove[position](r, e); err != nil {
		t.Fatal(err)
	}

	equalCalls(t, rec.calls, []string{
		"position.attach",
		"position.update",
		"position.detach",
		"position.attach",
		"position.detach",
	})
}

func TestDestroyDetachesInReverseRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	Register[position](r, rec.hooks("position"))
	Register[tag](r, HookFuncs{
		Detach: func(r *Registry, e Entity) error {
			// Every other component must still be attached.
			if !Has[position](r, e) {
				t.Error("position already dropped while tag detaches")
			}
			rec.calls = append(rec.calls, "tag.detach")
			return nil
		},
	})

	e := r.Create()
	Emplace(r, e, position{})
	Emplace(r, e, tag{})
	rec.calls = nil

	if err := r.Destroy(e); err != nil {
		t.Fatal(err)
	}
	equalCalls(t, rec.calls, []string{"tag.detach", "position.detach"})
	if Count[position](r) != 0 || Count[tag](r) != 0 {
		t.Error("components survived Destroy")
	}
}

func TestNestedDestroyCascades(t *testing.T) {
	r := NewRegistry()
	Register[children](r, HookFuncs{
		Detach: func(r *Registry, e Entity) error {
			c, _ := Get[children](r, e)
			var err error
			for _, child := range c.Of {
				err = errors.CombineErrors(err, r.Destroy(child))
			}
			return err
		},
	})

	root := r.Create()
	leafA, leafB := r.Create(), r.Create()
	mid := r.Create()
	Emplace(r, mid, children{Of: []Entity{leafB}})
	Emplace(r, root, children{Of: []Entity{leafA, mid, root}})

	if err := r.Destroy(root); err != nil {
		t.Fatal(err)
	}
	for _, e := range []Entity{root, leafA, leafB, mid} {
		if r.Alive(e) {
			t.Errorf("%s survived cascading destroy", e)
		}
	}
}

func TestHookErrorsPropagate(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	rec := &recorder{err: boom}
	Register[position](r, rec.hooks("position"))

	e := r.Create()
	if _, err := Emplace(r, e, position{}); !errors.Is(err, boom) {
		t.Errorf("Emplace error = %v, want boom", err)
	}
	if err := Patch[position](r, e); !errors.Is(err, boom) {
		t.Errorf("Patch error = %v, want boom", err)
	}
	if err := r.Destroy(e); !errors.Is(err, boom) {
		t.Errorf("Destroy error = %v, want boom", err)
	}
	if r.Alive(e) {
		t.Error("entity survived a failing destroy hook")
	}
}

func TestEmplaceKeepsValueWhenDetachFails(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	Register[position](r, HookFuncs{
		Detach: func(r *Registry, e Entity) error { return boom },
	})

	e := r.Create()
	if _, err := Emplace(r, e, position{1, 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := Emplace(r, e, position{2, 2}); !errors.Is(err, boom) {
		t.Errorf("replace error = %v, want boom", err)
	}
	if p, _ := Get[position](r, e); p.X != 1 {
		t.Errorf("value after failed replace = %+v", *p)
	}
}

func TestPatchMissingComponent(t *testing.T) {
	r := NewRegistry()
	e := r.Create()
	if err := Patch[position](r, e); !errors.Is(err, core.ErrMissingComponent) {
		t.Errorf("Patch error = %v, want ErrMissingComponent", err)
	}
	r.Destroy(e)
	if _, err := Emplace(r, e, position{}); !errors.Is(err, ErrEntityNotAlive) {
		t.Errorf("Emplace on dead entity error = %v", err)
	}
}

func TestEachIsOrderedAndClearEmpties(t *testing.T) {
	r := NewRegistry()
	var made []Entity
	for i := 0; i < 5; i++ {
		e := r.Create()
		made = append(made, e)
		Emplace(r, e, position{X: float32(i)})
	}
	var seen []float32
	Each(r, func(e Entity, p *position) {
		seen = append(seen, p.X)
	})
	for i, x := range seen {
		if x != float32(i) {
			t.Fatalf("Each order = %v", seen)
		}
	}

	if err := r.Clear(); err != nil {
		t.Fatal(err)
	}
	for _, e := range made {
		if r.Alive(e) {
			t.Errorf("%s alive after Clear", e)
		}
	}
	if Count[position](r) != 0 {
		t.Errorf("Count after Clear = %d", Count[position](r))
	}
}
