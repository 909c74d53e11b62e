// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"fmt"

	"builderportal_backend/platform/apperr"
)

const (
	StageInitialContact = "Initial Contact"
	StageSiteVisit      = "Site Visit"
	StageProposalSent   = "Proposal Sent"
	StageNegotiation    = "Negotiation"
	StageContractSigned = "Contract Signed"
	StageProjectStarted = "Project Started"
	StageCompleted      = "Completed"
	StageLost           = "Lost"
)

// stageSequence is the linear happy path. Lost sits outside the sequence and
// is reachable from any non-terminal stage.
var stageSequence = []string{
	StageInitialContact,
	StageSiteVisit,
	StageProposalSent,
	StageNegotiation,
	StageContractSigned,
	StageProjectStarted,
	StageCompleted,
}

var stageIndex = buildStageIndex()

func buildStageIndex() map[string]int {
	index := make(map[string]int, len(stageSequence))
	for i, stage := range stageSequence {
		index[stage] = i
	}
	return index
}

// IsKnownStage reports whether stage is part of the lifecycle.
func IsKnownStage(stage string) bool {
	if stage == StageLost {
		return true
	}
	_, ok := stageIndex[stage]
	return ok
}

// IsTerminalStage reports whether the stage ends the lifecycle.
// Completed and Lost are terminal; no automatic transition leaves them.
func IsTerminalStage(stage string) bool {
	return stage == StageCompleted || stage == StageLost
}

// NextStage returns the stage following current on the linear happy path.
// The second return is false when current has no automatic successor
// (terminal stages and Lost).
func NextStage(current string) (string, bool) {
	i, ok := stageIndex[current]
	if !ok || i+1 >= len(stageSequence) {
		return "", false
	}
	return stageSequence[i+1], true
}

// ValidateTransition applies the lifecycle transition rule.
//
// A manual transition may target any known stage, including moving backwards
// or out of a terminal stage; it is the only path back once a lead is
// Completed or Lost. An automatic transition is accepted only when it targets
// the next stage in the linear sequence or Lost from a non-terminal stage,
// and never when a human has pinned the stage (manuallySet).
//
// A transition to the current stage is accepted as an idempotent no-op;
// callers must not record an activity entry or touch completedAt for it.
func ValidateTransition(current, target string, manual, manuallySet bool) error {
	if !IsKnownStage(target) {
		return apperr.InvalidTransition(fmt.Sprintf("unknown stage %q", target))
	}

	if manual {
		return nil
	}

	if manuallySet {
		return apperr.InvalidTransition("stage was set manually; automatic transitions are disabled")
	}

	if target == current {
		return nil
	}

	if IsTerminalStage(current) {
		return apperr.InvalidTransition(fmt.Sprintf("stage %q is terminal", current))
	}

	if target == StageLost {
		return nil
	}

	next, ok := NextStage(current)
	if !ok || target != next {
		return apperr.InvalidTransition(fmt.Sprintf("cannot move from %q to %q", current, target))
	}

	return nil
}
