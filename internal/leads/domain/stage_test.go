package domain

import (
	"testing"

	"builderportal_backend/platform/apperr"
)

func TestNextStage(t *testing.T) {
	tests := []struct {
		current string
		want    string
		ok      bool
	}{
		{StageInitialContact, StageSiteVisit, true},
		{StageSiteVisit, StageProposalSent, true},
		{StageProjectStarted, StageCompleted, true},
		{StageCompleted, "", false},
		{StageLost, "", false},
		{"Bogus", "", false},
	}
	for _, tc := range tests {
		got, ok := NextStage(tc.current)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NextStage(%q) = %q, %v; want %q, %v", tc.current, got, ok, tc.want, tc.ok)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name        string
		current     string
		target      string
		manual      bool
		manuallySet bool
		wantErr     bool
	}{
		{"automatic next step", StageInitialContact, StageSiteVisit, false, false, false},
		{"automatic skip ahead", StageInitialContact, StageProposalSent, false, false, true},
		{"automatic backwards", StageNegotiation, StageSiteVisit, false, false, true},
		{"automatic to lost", StageNegotiation, StageLost, false, false, false},
		{"automatic same stage", StageSiteVisit, StageSiteVisit, false, false, false},
		{"automatic blocked by pin", StageSiteVisit, StageProposalSent, false, true, true},
		{"automatic out of completed", StageCompleted, StageInitialContact, false, false, true},
		{"automatic out of lost", StageLost, StageInitialContact, false, false, true},
		{"manual any target", StageInitialContact, StageContractSigned, true, false, false},
		{"manual backwards", StageNegotiation, StageInitialContact, true, false, false},
		{"manual out of terminal", StageLost, StageSiteVisit, true, true, false},
		{"manual unknown stage", StageSiteVisit, "Archived", true, false, true},
		{"automatic unknown stage", StageSiteVisit, "Archived", false, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.current, tc.target, tc.manual, tc.manuallySet)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
			if err != nil && apperr.GetKind(err) != apperr.KindInvalidTransition {
				t.Errorf("kind = %v, want invalid transition", apperr.GetKind(err))
			}
		})
	}
}

func TestIsTerminalStage(t *testing.T) {
	if !IsTerminalStage(StageCompleted) || !IsTerminalStage(StageLost) {
		t.Error("Completed and Lost are terminal")
	}
	if IsTerminalStage(StageProjectStarted) {
		t.Error("Project Started is not terminal")
	}
}
