// Package mapper converts raw spreadsheet rows and webhook payloads into
// lead drafts. Mapping is total: malformed input yields a draft with
// sentinel values, never an error.
package mapper

import (
	"strconv"
	"strings"

	"builderportal_backend/internal/leads/domain"
	"builderportal_backend/platform/phone"
)

// Column positions of the response sheet. The form appends answers in
// question order, so positions are stable for the lifetime of the form.
const (
	colTimestamp = iota
	colBuilder
	colFullName
	colPhoneNumber
	colAddress
	colWorkRequired
	colDetails
	colBudget
	colCity
	colStartDate
	colEmail
	colContactPreference

	columnCount
)

// MapRow converts one spreadsheet row into a draft. Missing or blank cells
// become the sheet's "N/A" placeholder so downstream comparisons line up
// with what a human sees in the sheet. sheetRow is the 1-based spreadsheet
// row number the cells came from.
func MapRow(cells []string, sheetRow int) domain.Draft {
	cell := func(i int) string {
		if i >= len(cells) {
			return domain.SheetUnset
		}
		v := strings.TrimSpace(cells[i])
		if v == "" {
			return domain.SheetUnset
		}
		return v
	}

	row := sheetRow
	d := domain.Draft{
		Source:            domain.SourceSheet,
		SheetRow:          &row,
		Timestamp:         cell(colTimestamp),
		Builder:           cell(colBuilder),
		FullName:          cell(colFullName),
		PhoneNumber:       cell(colPhoneNumber),
		Address:           cell(colAddress),
		WorkRequired:      cell(colWorkRequired),
		Details:           cell(colDetails),
		Budget:            cell(colBudget),
		City:              cell(colCity),
		StartDate:         cell(colStartDate),
		Email:             cell(colEmail),
		ContactPreference: cell(colContactPreference),
		Stage:             domain.StageInitialContact,
	}
	if d.PhoneNumber != domain.SheetUnset {
		d.PhoneNumber = phone.NormalizeE164(d.PhoneNumber)
	}
	// The builder column holds "N/A" until someone assigns the lead.
	if d.Builder == domain.SheetUnset {
		d.Builder = ""
	}
	return d
}

// knownKeys are payload fields with a dedicated draft slot. Everything else
// passes through untouched in Extra.
var knownKeys = map[string]struct{}{
	"timestamp": {}, "builder": {}, "fullName": {}, "phoneNumber": {},
	"address": {}, "workRequired": {}, "details": {}, "budget": {},
	"city": {}, "startDate": {}, "email": {}, "contactPreference": {},
	"rowId": {}, "stage": {},
}

// MapSubmission converts a form webhook payload into a draft. Unlike sheet
// rows, absent fields stay empty rather than "N/A": a webhook payload is a
// direct capture of what the submitter typed. A numeric rowId links the
// submission back to the spreadsheet row the forms add-on wrote it to.
func MapSubmission(payload map[string]string) domain.Draft {
	field := func(key string) string {
		return strings.TrimSpace(payload[key])
	}

	d := domain.Draft{
		Source:            domain.SourceWebhook,
		Timestamp:         field("timestamp"),
		Builder:           field("builder"),
		FullName:          field("fullName"),
		PhoneNumber:       field("phoneNumber"),
		Address:           field("address"),
		WorkRequired:      field("workRequired"),
		Details:           field("details"),
		Budget:            field("budget"),
		City:              field("city"),
		StartDate:         field("startDate"),
		Email:             field("email"),
		ContactPreference: field("contactPreference"),
		Stage:             domain.StageInitialContact,
	}
	if d.PhoneNumber != "" {
		d.PhoneNumber = phone.NormalizeE164(d.PhoneNumber)
	}

	// Manual entries may arrive mid-pipeline. An unrecognized stage falls
	// back to the lifecycle default rather than failing the mapping.
	if stage := field("stage"); domain.IsKnownStage(stage) {
		d.Stage = stage
	}

	if raw := field("rowId"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			d.SheetRow = &n
		}
	}

	for key, value := range payload {
		if _, known := knownKeys[key]; known {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]string)
		}
		d.Extra[key] = value
	}

	return d
}
