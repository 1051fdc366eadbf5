package core

import "testing"

func TestEventBusStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls++
		return data.Data.U32[0] == 1
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls++
		return true
	}
	if !bus.Register(EVENT_CODE_RESIZED, "a", first) {
		t.Fatal("register a failed")
	}
	if !bus.Register(EVENT_CODE_RESIZED, "b", second) {
		t.Fatal("register b failed")
	}
	if bus.Register(EVENT_CODE_RESIZED, "a", first) {
		t.Error("duplicate listener accepted")
	}

	ctx := EventContext{}
	ctx.Data.U32[0] = 1
	if !bus.Fire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Error("event not handled")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	bus.Unregister(EVENT_CODE_RESIZED, "a")
	calls = 0
	bus.Fire(EVENT_CODE_RESIZED, nil, ctx)
	if calls != 1 {
		t.Errorf("after unregister calls = %d, want 1", calls)
	}
}
