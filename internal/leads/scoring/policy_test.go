package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load default policy: %v", err)
	}
	if err := p.validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	content := []byte(`
weights:
  budget: 0.4
  responsiveness: 0.2
  project_type: 0.2
  location: 0.1
  interactions: 0.1
budget_bands:
  high: 80000
  mid: 30000
  low: 10000
serviced_cities:
  - Manchester
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if p.Weights.Budget != 0.4 {
		t.Errorf("budget weight = %v", p.Weights.Budget)
	}
	if p.BudgetBands.High != 80000 {
		t.Errorf("high band = %v", p.BudgetBands.High)
	}
	if len(p.ServicedCities) != 1 || p.ServicedCities[0] != "Manchester" {
		t.Errorf("serviced cities = %v", p.ServicedCities)
	}
}

func TestLoadPolicyRejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	content := []byte(`
weights:
  budget: 0.9
  responsiveness: 0.9
  project_type: 0.2
  location: 0.1
  interactions: 0.1
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("weights summing past 1 must be rejected")
	}
}
