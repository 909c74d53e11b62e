package scoring

import (
	"strconv"
	"strings"
	"time"

	"builderportal_backend/internal/leads/domain"
	"builderportal_backend/internal/leads/repository"
)

// neutralScore is the value a factor contributes when the lead carries no
// signal for it. With weights summing to 1, a lead with no signals at all
// scores exactly neutral.
const neutralScore = 50.0

// factorInput bundles everything a factor may inspect.
type factorInput struct {
	lead       repository.Lead
	activities []repository.Activity
}

// budgetFactor bands the stated budget. The free-text budget field is parsed
// leniently; anything without a recognizable number is no signal.
func budgetFactor(in factorInput, bands Policy) float64 {
	amount, ok := parseBudget(in.lead.Budget)
	if !ok {
		return neutralScore
	}
	switch {
	case amount >= bands.BudgetBands.High:
		return 90
	case amount >= bands.BudgetBands.Mid:
		return 75
	case amount >= bands.BudgetBands.Low:
		return 60
	default:
		return 45
	}
}

func parseBudget(raw string) (float64, bool) {
	if raw == "" || raw == domain.SheetUnset {
		return 0, false
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
		// Thousands separators drop out; "£25,000" parses as 25000.
	}
	if b.Len() == 0 {
		return 0, false
	}
	amount, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// responsivenessFactor scores how quickly the first follow-up landed after
// the lead came in. The creation entry shares the lead's timestamp and does
// not count as a follow-up; a lead nobody has touched yet carries no signal.
func responsivenessFactor(in factorInput) float64 {
	base := in.lead.CreatedAt
	var first time.Time
	for _, a := range in.activities {
		if !a.CreatedAt.After(base) {
			continue
		}
		if first.IsZero() || a.CreatedAt.Before(first) {
			first = a.CreatedAt
		}
	}
	if first.IsZero() {
		return neutralScore
	}

	switch latency := first.Sub(base); {
	case latency <= 48*time.Hour:
		return 80
	case latency <= 7*24*time.Hour:
		return 65
	case latency <= 30*24*time.Hour:
		return 50
	default:
		return 30
	}
}

var projectTypeBands = []struct {
	keywords []string
	score    float64
}{
	{[]string{"extension", "renovation", "loft", "conversion", "new build", "basement"}, 80},
	{[]string{"kitchen", "bathroom", "roof", "landscaping", "driveway"}, 65},
	{[]string{"repair", "fence", "paint", "gutter", "shed", "patch"}, 40},
}

// projectTypeFactor estimates job size from the requested work description.
func projectTypeFactor(in factorInput) float64 {
	work := strings.ToLower(in.lead.WorkRequired)
	if work == "" || strings.EqualFold(work, domain.SheetUnset) {
		return neutralScore
	}
	for _, band := range projectTypeBands {
		for _, kw := range band.keywords {
			if strings.Contains(work, kw) {
				return band.score
			}
		}
	}
	return neutralScore
}

// locationFactor favors leads inside the serviced coverage area.
func locationFactor(in factorInput, p Policy) float64 {
	city := strings.TrimSpace(in.lead.City)
	if city == "" || strings.EqualFold(city, domain.SheetUnset) {
		return neutralScore
	}
	for _, serviced := range p.ServicedCities {
		if strings.EqualFold(city, serviced) {
			return 70
		}
	}
	return 45
}

// interactionsFactor counts activity beyond the creation entry. Frequent
// back-and-forth is the single strongest conversion signal we observe.
func interactionsFactor(in factorInput) float64 {
	count := len(in.activities) - 1
	switch {
	case count >= 8:
		return 85
	case count >= 4:
		return 70
	case count >= 2:
		return 60
	case count == 1:
		return 55
	default:
		return neutralScore
	}
}
