package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

// Fixture is a snapshot of the store contents. It seeds development and test
// stores and accepts YAML or JSON.
type Fixture struct {
	Operators     []model.Operator       `yaml:"operators"`
	Journeys      []model.Journey        `yaml:"journeys"`
	Vehicles      []model.Vehicle        `yaml:"vehicles"`
	RouteVehicles []model.RouteVehicle   `yaml:"route_vehicles"`
	Parties       []model.Party          `yaml:"parties"`
	Allocations   []model.Allocation     `yaml:"allocations"`
	Preferences   []model.CrewPreference `yaml:"crew_preferences"`
	Staff         []model.Staff          `yaml:"staff"`
	Assignments   []model.CrewAssignment `yaml:"crew_assignments"`
	Ledger        []model.LedgerEntry    `yaml:"ledger"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (Fixture, error) {
	var f Fixture
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}
