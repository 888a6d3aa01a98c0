// Package registry loads the run plan and resolves it against the suites
// known to a discovery source.
package registry

import (
	"slices"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ethereum-optimism/infra/op-testexec/discovery"
	"github.com/ethereum-optimism/infra/op-testexec/filter"
	"github.com/ethereum-optimism/infra/op-testexec/types"
)

var (
	ErrUnknownGate   = errors.New("unknown gate")
	ErrGateRequired  = errors.New("plan defines several gates, one must be selected")
	ErrUnknownSuite  = errors.New("unknown suite")
	ErrUnknownMethod = errors.New("unknown test method")
)

// Source provides the registered suites.
type Source interface {
	Types() []*types.TypeDescriptor
	Lookup(name string) (*types.TypeDescriptor, bool)
}

// Config contains registry configuration
type Config struct {
	Log    log.Logger
	Source Source
	// PlanFile is optional. Without a plan every registered test is selected.
	PlanFile string
}

// Selection is the outcome of resolving a gate.
type Selection struct {
	Gate    string
	Methods []*types.MethodDescriptor
	Groups  []string
	Filter  *filter.Expression
}

// Registry resolves gates of the run plan into method lists.
type Registry struct {
	config Config
	log    log.Logger

	mu   sync.RWMutex
	plan *Plan
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Source == nil {
		return nil, errors.New("suite source is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	r := &Registry{config: cfg, log: cfg.Log.New("component", "registry")}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the plan file, if one is configured.
func (r *Registry) Reload() error {
	plan := &Plan{}
	if r.config.PlanFile != "" {
		var err error
		if plan, err = LoadPlan(r.config.PlanFile); err != nil {
			return errors.Wrap(err, "failed to load plan")
		}
	}

	r.mu.Lock()
	r.plan = plan
	r.mu.Unlock()
	r.log.Debug("Registry loaded", "plan", r.config.PlanFile, "gates", len(plan.Gates))
	return nil
}

// Plan returns the loaded plan.
func (r *Registry) Plan() *Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plan
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// Select resolves gateID into the methods to run. An empty gateID selects
// the only gate of the plan, or every registered test if the plan has none.
func (r *Registry) Select(gateID string) (*Selection, error) {
	plan := r.Plan()

	if len(plan.Gates) == 0 {
		if gateID != "" {
			return nil, errors.Wrap(ErrUnknownGate, gateID)
		}
		var methods []*types.MethodDescriptor
		for _, td := range r.config.Source.Types() {
			methods = append(methods, discovery.Tests(td)...)
		}
		return &Selection{Methods: methods}, nil
	}

	gate, err := plan.gate(gateID)
	if err != nil {
		return nil, err
	}

	sel := &Selection{Gate: gate.ID, Groups: filter.NormalizeGroups(gate.Groups)}
	if sel.Filter, err = filter.Compile(gate.Filter); err != nil {
		return nil, errors.Wrapf(err, "gate %s", gate.ID)
	}

	names := make([]string, 0, len(gate.Suites))
	for name := range gate.Suites {
		names = append(names, name)
	}
	sort.Strings(names)

	var methods []*types.MethodDescriptor
	for _, name := range names {
		td, ok := r.config.Source.Lookup(name)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownSuite, "gate %s: %s", gate.ID, name)
		}
		selected, err := selectMethods(td, gate.Suites[name])
		if err != nil {
			return nil, errors.Wrapf(err, "gate %s", gate.ID)
		}
		methods = append(methods, selected...)
	}

	if sel.Methods, err = sel.Filter.Apply(methods); err != nil {
		return nil, err
	}
	r.log.Debug("Resolved gate", "gate", gate.ID, "suites", len(names), "methods", len(sel.Methods))
	return sel, nil
}

func (p *Plan) gate(id string) (GateConfig, error) {
	if id == "" {
		if len(p.Gates) > 1 {
			return GateConfig{}, ErrGateRequired
		}
		return p.Gates[0], nil
	}
	for _, g := range p.Gates {
		if g.ID == id {
			return g, nil
		}
	}
	return GateConfig{}, errors.Wrap(ErrUnknownGate, id)
}

func selectMethods(td *types.TypeDescriptor, cfg SuiteConfig) ([]*types.MethodDescriptor, error) {
	all := discovery.Tests(td)
	byName := make(map[string]*types.MethodDescriptor, len(all))
	for _, m := range all {
		byName[m.Name] = m
	}

	selected := all
	if len(cfg.Methods) > 0 {
		selected = make([]*types.MethodDescriptor, 0, len(cfg.Methods))
		seen := make(map[string]bool, len(cfg.Methods))
		for _, name := range cfg.Methods {
			m, ok := byName[name]
			if !ok {
				return nil, errors.Wrapf(ErrUnknownMethod, "%s.%s", td.FullName, name)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			selected = append(selected, m)
		}
	}

	out := make([]*types.MethodDescriptor, 0, len(selected))
	for _, m := range selected {
		if slices.Contains(cfg.Exclude, m.Name) {
			continue
		}
		if cfg.Skip != "" {
			skipped := *m
			skipped.Skip = true
			skipped.SkipMessage = cfg.Skip
			m = &skipped
		}
		out = append(out, m)
	}
	return out, nil
}
