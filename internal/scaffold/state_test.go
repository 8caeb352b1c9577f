package scaffold

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateSelecting, true},
		{StateSelecting, StateResolving, true},
		{StateResolving, StateRendering, true},
		{StateRendering, StateMaterializing, true},
		{StateMaterializing, StateCompleted, true},
		{StateResolving, StateAborted, true},
		{StateRendering, StateAborted, true},
		{StateMaterializing, StateAborted, true},

		{StateIdle, StateAborted, false},
		{StateSelecting, StateAborted, false},
		{StateRendering, StateCompleted, false},
		{StateCompleted, StateIdle, false},
		{StateAborted, StateResolving, false},
		{StateIdle, StateRendering, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIllegalTransitionPanics(t *testing.T) {
	m := &machine{}
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m.to(StateMaterializing)
}

func TestStateString(t *testing.T) {
	if StateMaterializing.String() != "materializing" {
		t.Errorf("String() = %q", StateMaterializing.String())
	}
	if State(42).String() != "state(42)" {
		t.Errorf("String() = %q", State(42).String())
	}
	if !StateAborted.Terminal() || StateRendering.Terminal() {
		t.Error("Terminal() wrong")
	}
}
