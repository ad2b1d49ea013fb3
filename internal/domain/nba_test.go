package domain

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestStatus_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusNew, StatusAccepted, StatusRejected} {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("cancelled").IsValid() {
		t.Error("unknown status should not be valid")
	}
}

func TestStatus_Transitions(t *testing.T) {
	t.Parallel()

	if StatusNew.IsTerminal() {
		t.Error("new must not be terminal")
	}
	if !StatusAccepted.IsTerminal() || !StatusRejected.IsTerminal() {
		t.Error("accepted and rejected must be terminal")
	}
	if StatusNew.IsAction() {
		t.Error("new is not a valid action status")
	}
	if !StatusAccepted.IsAction() || !StatusRejected.IsAction() {
		t.Error("accepted and rejected are action statuses")
	}
}

func TestScope_Equal_NullHandling(t *testing.T) {
	t.Parallel()

	base := Scope{NbaDefinitionID: "def-1", EnterpriseNumber: strPtr("0123456789")}

	tests := []struct {
		name  string
		other Scope
		want  bool
	}{
		{
			name:  "identical with nil account and contact",
			other: Scope{NbaDefinitionID: "def-1", EnterpriseNumber: strPtr("0123456789")},
			want:  true,
		},
		{
			name:  "nil does not match set account",
			other: Scope{NbaDefinitionID: "def-1", EnterpriseNumber: strPtr("0123456789"), AccountID: strPtr("acc-1")},
			want:  false,
		},
		{
			name:  "different definition",
			other: Scope{NbaDefinitionID: "def-2", EnterpriseNumber: strPtr("0123456789")},
			want:  false,
		},
		{
			name:  "different enterprise number",
			other: Scope{NbaDefinitionID: "def-1", EnterpriseNumber: strPtr("9999999999")},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScope_HasTarget(t *testing.T) {
	t.Parallel()

	if (Scope{NbaDefinitionID: "def-1"}).HasTarget() {
		t.Error("scope without identifiers should have no target")
	}
	if !(Scope{NbaDefinitionID: "def-1", ContactID: strPtr("c-1")}).HasTarget() {
		t.Error("contact_id alone is a valid target")
	}
}

func TestNewIDs(t *testing.T) {
	t.Parallel()

	nbaID := NewNbaID()
	evtID := NewEventLogID()

	if !strings.HasPrefix(nbaID, "nba_") || len(nbaID) != len("nba_")+10 {
		t.Errorf("unexpected nba id shape: %q", nbaID)
	}
	if !strings.HasPrefix(evtID, "evt_") || len(evtID) != len("evt_")+10 {
		t.Errorf("unexpected event log id shape: %q", evtID)
	}
	if NewNbaID() == nbaID {
		t.Error("ids must not repeat")
	}
}
