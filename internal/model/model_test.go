package model

import "testing"

func TestMatchIdString(t *testing.T) {
	m := MatchId{GameID: 42, PlatformID: "NA1"}
	if got := m.String(); got != "NA1_42" {
		t.Errorf("String() = %q, want %q", got, "NA1_42")
	}
}

func TestSessionEventTaggedUnion(t *testing.T) {
	sessionOnly := SessionEvent{Session: &SessionPhase{Phase: PhaseInProgress, GameID: 7}}
	if sessionOnly.EogStats != nil {
		t.Error("expected EogStats to be nil when Session is set")
	}
	if sessionOnly.Session == nil || sessionOnly.Session.Phase != PhaseInProgress {
		t.Error("expected Session variant to carry the phase")
	}

	eogOnly := SessionEvent{EogStats: &EogStats{}}
	if eogOnly.Session != nil {
		t.Error("expected Session to be nil when EogStats is set")
	}
}
