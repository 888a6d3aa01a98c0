package registry

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Plan is the run plan file.
type Plan struct {
	Gates []GateConfig `yaml:"gates"`

	// Concurrent and Workers are defaults that CLI flags can override.
	Concurrent bool `yaml:"concurrent,omitempty"`
	Workers    int  `yaml:"workers,omitempty"`
}

// GateConfig is a named selection of suites and methods.
type GateConfig struct {
	ID          string                 `yaml:"id"`
	Description string                 `yaml:"description"`
	Inherits    []string               `yaml:"inherits,omitempty"`
	Suites      map[string]SuiteConfig `yaml:"suites,omitempty"`
	Groups      []string               `yaml:"groups,omitempty"`
	Filter      string                 `yaml:"filter,omitempty"`
}

// SuiteConfig selects methods of one registered suite.
type SuiteConfig struct {
	// Methods lists the tests to run. Empty selects every test of the suite.
	Methods []string `yaml:"methods,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	// Skip marks every selected test as skipped with the given message.
	Skip string `yaml:"skip,omitempty"`
}

// ResolveInherited merges the suites of every gate g inherits from,
// depth-first. Suites already configured on g take precedence, as do g's own
// groups and filter.
func (g *GateConfig) ResolveInherited(gates map[string]GateConfig) error {
	return g.resolveInheritedRecursive(gates, make(map[string]bool))
}

func (g *GateConfig) resolveInheritedRecursive(gates map[string]GateConfig, processed map[string]bool) error {
	if len(g.Inherits) == 0 {
		return nil
	}

	merged := make(map[string]SuiteConfig, len(g.Suites))
	for k, v := range g.Suites {
		merged[k] = v
	}

	for _, id := range g.Inherits {
		if processed[id] {
			return errors.Errorf("circular inheritance detected for gate %q", id)
		}
		parent, ok := gates[id]
		if !ok {
			return errors.Errorf("gate %q inherits from non-existent gate %q", g.ID, id)
		}

		processed[id] = true
		if err := parent.resolveInheritedRecursive(gates, processed); err != nil {
			return errors.Wrapf(err, "resolving inheritance for parent gate %q", id)
		}
		processed[id] = false

		for k, v := range parent.Suites {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
		if len(g.Groups) == 0 {
			g.Groups = parent.Groups
		}
		if g.Filter == "" {
			g.Filter = parent.Filter
		}
	}

	g.Suites = merged
	return nil
}

// ParsePlan decodes a plan and resolves gate inheritance.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, errors.Wrap(err, "parsing plan")
	}
	if plan.Workers < 0 {
		return nil, errors.Errorf("workers cannot be negative: %d", plan.Workers)
	}
	if err := plan.resolveGates(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LoadPlan reads and parses the plan file at path.
func LoadPlan(path string) (*Plan, error) {
	log.Debug("Reading run plan", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading plan file")
	}
	return ParsePlan(data)
}

func (p *Plan) resolveGates() error {
	gateMap := make(map[string]GateConfig, len(p.Gates))
	for _, gate := range p.Gates {
		if gate.ID == "" {
			return errors.New("gate without id")
		}
		if _, dup := gateMap[gate.ID]; dup {
			return errors.Errorf("duplicate gate %q", gate.ID)
		}
		gateMap[gate.ID] = gate
	}

	for _, gate := range p.Gates {
		if err := checkCircularInheritance(gate.ID, gate.Inherits, gateMap, make(map[string]bool)); err != nil {
			return errors.Wrap(err, "circular inheritance detected")
		}
	}
	for i := range p.Gates {
		if err := p.Gates[i].ResolveInherited(gateMap); err != nil {
			return errors.Wrap(err, "invalid gate inheritance")
		}
	}
	return nil
}

func checkCircularInheritance(currentID string, inherits []string, gateMap map[string]GateConfig, visited map[string]bool) error {
	if visited[currentID] {
		return errors.Errorf("circular inheritance detected at gate %s", currentID)
	}
	visited[currentID] = true
	defer delete(visited, currentID)

	for _, id := range inherits {
		inherited, exists := gateMap[id]
		if !exists {
			return errors.Errorf("gate %s inherits from non-existent gate %s", currentID, id)
		}
		if err := checkCircularInheritance(id, inherited.Inherits, gateMap, visited); err != nil {
			return err
		}
	}
	return nil
}
