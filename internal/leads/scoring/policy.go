package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy tunes the conversion score without a code change. Weights must sum
// to 1 so a lead with all-neutral factors lands exactly on the base score.
type Policy struct {
	Weights struct {
		Budget         float64 `yaml:"budget"`
		Responsiveness float64 `yaml:"responsiveness"`
		ProjectType    float64 `yaml:"project_type"`
		Location       float64 `yaml:"location"`
		Interactions   float64 `yaml:"interactions"`
	} `yaml:"weights"`

	// BudgetBands are lower bounds in whole pounds for the high, mid and
	// low budget factor bands.
	BudgetBands struct {
		High float64 `yaml:"high"`
		Mid  float64 `yaml:"mid"`
		Low  float64 `yaml:"low"`
	} `yaml:"budget_bands"`

	// ServicedCities lists the cities the business actively covers.
	// Leads inside the coverage area score higher on the location factor.
	ServicedCities []string `yaml:"serviced_cities"`
}

const weightSumTolerance = 0.001

// DefaultPolicy returns the compiled-in policy used when no policy file is
// configured.
func DefaultPolicy() Policy {
	var p Policy
	p.Weights.Budget = 0.30
	p.Weights.Responsiveness = 0.20
	p.Weights.ProjectType = 0.20
	p.Weights.Location = 0.15
	p.Weights.Interactions = 0.15
	p.BudgetBands.High = 50000
	p.BudgetBands.Mid = 20000
	p.BudgetBands.Low = 5000
	p.ServicedCities = []string{"Leeds", "Bradford", "York", "Harrogate", "Wakefield"}
	return p
}

// LoadPolicy reads a policy file, falling back to defaults for omitted
// sections. An empty path returns the default policy unchanged.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read scoring policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse scoring policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) validate() error {
	sum := p.Weights.Budget + p.Weights.Responsiveness + p.Weights.ProjectType +
		p.Weights.Location + p.Weights.Interactions
	if sum < 1-weightSumTolerance || sum > 1+weightSumTolerance {
		return fmt.Errorf("scoring policy weights sum to %.3f, want 1", sum)
	}
	return nil
}
