// Package resolver decides what a lead draft means relative to the store:
// a brand-new lead, an update to an existing one, or nothing at all.
// Identity is positional: a spreadsheet row number names exactly one lead.
package resolver

import (
	"builderportal_backend/internal/leads/domain"
	"builderportal_backend/internal/leads/repository"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Decision is the resolver's verdict for one draft. Reason is a short
// human-readable note surfaced in sync logs.
type Decision struct {
	Action Action
	Reason string
}

// Resolve maps a draft and the lead currently occupying its identity slot
// (nil when none) to an action.
//
// Sheet rows are append-only, so a row that has completed a sync round
// (Synced) is skipped on every later round even if its cells changed; this
// keeps repeated full syncs idempotent and leaves portal edits authoritative.
// A webhook submission without a correlation row id always creates, since
// nothing ties it to an existing lead.
func Resolve(draft domain.Draft, existing *repository.Lead) Decision {
	if draft.Source == domain.SourceWebhook && draft.SheetRow == nil {
		return Decision{Action: ActionCreate, Reason: "no correlation row id"}
	}

	if existing == nil {
		return Decision{Action: ActionCreate, Reason: "row not seen before"}
	}

	if draft.Source == domain.SourceSheet && existing.Synced {
		return Decision{Action: ActionSkip, Reason: "row already synced"}
	}

	if differs(draft, *existing) {
		return Decision{Action: ActionUpdate, Reason: "row data changed"}
	}

	return Decision{Action: ActionSkip, Reason: "no changes"}
}

func differs(draft domain.Draft, lead repository.Lead) bool {
	pairs := [][2]string{
		{draft.FullName, lead.FullName},
		{draft.PhoneNumber, lead.PhoneNumber},
		{draft.Email, lead.Email},
		{draft.Address, lead.Address},
		{draft.City, lead.City},
		{draft.WorkRequired, lead.WorkRequired},
		{draft.Details, lead.Details},
		{draft.Budget, lead.Budget},
		{draft.StartDate, lead.StartDate},
		{draft.ContactPreference, lead.ContactPreference},
	}
	for _, p := range pairs {
		if p[0] != p[1] {
			return true
		}
	}
	return false
}
