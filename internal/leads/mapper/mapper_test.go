package mapper

import (
	"testing"

	"builderportal_backend/internal/leads/domain"
)

func TestMapRowFullRow(t *testing.T) {
	cells := []string{
		"2025-03-01 10:15:00", "Smith & Sons", "Jane Doe", "+447911123456",
		"12 Oak Lane", "Kitchen Renovation", "Full refit", "£25,000",
		"Leeds", "Spring 2025", "jane@example.com", "Email",
	}

	d := MapRow(cells, 7)

	if d.Source != domain.SourceSheet {
		t.Fatalf("source = %q, want sheet", d.Source)
	}
	if d.SheetRow == nil || *d.SheetRow != 7 {
		t.Fatalf("sheet row = %v, want 7", d.SheetRow)
	}
	if d.FullName != "Jane Doe" {
		t.Errorf("full name = %q", d.FullName)
	}
	if d.PhoneNumber != "+447911123456" {
		t.Errorf("phone = %q", d.PhoneNumber)
	}
	if d.Builder != "Smith & Sons" {
		t.Errorf("builder = %q", d.Builder)
	}
	if d.City != "Leeds" {
		t.Errorf("city = %q", d.City)
	}
	if d.Stage != domain.StageInitialContact {
		t.Errorf("stage = %q", d.Stage)
	}
}

func TestMapRowShortAndBlankCells(t *testing.T) {
	d := MapRow([]string{"2025-03-01", "", "John"}, 3)

	if d.FullName != "John" {
		t.Errorf("full name = %q", d.FullName)
	}
	if d.Builder != "" {
		t.Errorf("blank builder column should map to unassigned, got %q", d.Builder)
	}
	for name, got := range map[string]string{
		"phone":   d.PhoneNumber,
		"address": d.Address,
		"budget":  d.Budget,
		"email":   d.Email,
	} {
		if got != domain.SheetUnset {
			t.Errorf("%s = %q, want %q", name, got, domain.SheetUnset)
		}
	}
}

func TestMapRowUnassignedBuilderSentinel(t *testing.T) {
	cells := []string{"ts", "N/A", "John", "0791112345"}
	if d := MapRow(cells, 2); d.Builder != "" {
		t.Errorf("builder = %q, want empty for N/A column", d.Builder)
	}
}

func TestMapSubmission(t *testing.T) {
	d := MapSubmission(map[string]string{
		"fullName":     " Bob Martin ",
		"phoneNumber":  "+447911000111",
		"workRequired": "Extension",
		"rowId":        "42",
		"referrer":     "google-ads",
	})

	if d.Source != domain.SourceWebhook {
		t.Fatalf("source = %q, want webhook", d.Source)
	}
	if d.FullName != "Bob Martin" {
		t.Errorf("full name = %q, want trimmed", d.FullName)
	}
	if d.SheetRow == nil || *d.SheetRow != 42 {
		t.Fatalf("sheet row = %v, want 42", d.SheetRow)
	}
	if d.Email != "" {
		t.Errorf("absent email = %q, want empty (not %q)", d.Email, domain.SheetUnset)
	}
	if d.Extra["referrer"] != "google-ads" {
		t.Errorf("extra = %v, want referrer passthrough", d.Extra)
	}
	if _, ok := d.Extra["rowId"]; ok {
		t.Error("rowId must not leak into extras")
	}
}

func TestMapSubmissionStartingStage(t *testing.T) {
	d := MapSubmission(map[string]string{
		"fullName": "Bob Martin",
		"stage":    domain.StageNegotiation,
	})
	if d.Stage != domain.StageNegotiation {
		t.Errorf("stage = %q, want %q", d.Stage, domain.StageNegotiation)
	}
	if _, ok := d.Extra["stage"]; ok {
		t.Error("stage must not leak into extras")
	}

	d = MapSubmission(map[string]string{
		"fullName": "Bob Martin",
		"stage":    "Half Done",
	})
	if d.Stage != domain.StageInitialContact {
		t.Errorf("unknown stage = %q, want lifecycle default", d.Stage)
	}
}

func TestMapSubmissionBadRowID(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-3"} {
		d := MapSubmission(map[string]string{"fullName": "X", "rowId": raw})
		if d.SheetRow != nil {
			t.Errorf("rowId %q: sheet row = %d, want nil", raw, *d.SheetRow)
		}
	}
}
