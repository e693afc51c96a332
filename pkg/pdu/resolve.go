package pdu

import (
	"errors"
	"fmt"
)

// ScopeSpec names one group or outlet together with the action to
// perform on it. An empty or "status" action means a pure status
// query. The JSON field names match the sequence file schema.
type ScopeSpec struct {
	Name   string `json:"name"`
	Action Action `json:"operation,omitempty"`
}

// Config is the resolved input of one dispatch: the declared PDU
// controllers and the group/outlet scopes to operate on. Action, when
// set, overrides the per-scope actions (command line wins over a
// loaded sequence file).
type Config struct {
	PDUs    []string
	Groups  []ScopeSpec
	Outlets []ScopeSpec
	Action  Action
}

// TargetPlan is the ordered Operation list for one Target.
type TargetPlan struct {
	Target     Target
	Operations []Operation
}

// Plan holds one TargetPlan per distinct Target, in declaration order.
type Plan struct {
	Targets []TargetPlan
}

var (
	ErrNoTargets = errors.New("no PDU targets declared")
	ErrNoScopes  = errors.New("no groups or outlets declared")
)

// Resolve expands a Config into the per-Target operation lists: one
// Operation per declared group (in declaration order) followed by one
// per declared outlet (in declaration order), identical for every
// Target. Duplicate targets and scope names keep their first
// occurrence. Resolution fails before any concurrent work starts.
func Resolve(cfg Config) (*Plan, error) {
	if len(cfg.PDUs) == 0 {
		return nil, ErrNoTargets
	}
	if len(cfg.Groups) == 0 && len(cfg.Outlets) == 0 {
		return nil, ErrNoScopes
	}

	ops := make([]Operation, 0, len(cfg.Groups)+len(cfg.Outlets))
	seen := map[string]bool{}
	for _, spec := range cfg.Groups {
		if seen["g:"+spec.Name] {
			continue
		}
		seen["g:"+spec.Name] = true
		op, err := makeOperation(ScopeGroup, spec, cfg.Action)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, spec := range cfg.Outlets {
		if seen["o:"+spec.Name] {
			continue
		}
		seen["o:"+spec.Name] = true
		op, err := makeOperation(ScopeOutlet, spec, cfg.Action)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	plan := &Plan{Targets: make([]TargetPlan, 0, len(cfg.PDUs))}
	seenHost := map[string]bool{}
	for _, host := range cfg.PDUs {
		if host == "" || seenHost[host] {
			continue
		}
		seenHost[host] = true
		plan.Targets = append(plan.Targets, TargetPlan{
			Target:     Target{Host: host},
			Operations: ops,
		})
	}
	if len(plan.Targets) == 0 {
		return nil, ErrNoTargets
	}
	return plan, nil
}

func makeOperation(scope Scope, spec ScopeSpec, override Action) (Operation, error) {
	if spec.Name == "" {
		return Operation{}, fmt.Errorf("%s with empty name", scope)
	}
	action := spec.Action
	if override != "" {
		action = override
	}
	switch action {
	case "", ActionStatus:
		return Operation{Kind: OpStatus, Scope: scope, Name: spec.Name}, nil
	case ActionOn, ActionOff, ActionReboot:
		return Operation{Kind: OpPower, Scope: scope, Name: spec.Name, Action: action}, nil
	default:
		return Operation{}, fmt.Errorf("invalid action %q for %s %s", action, scope, spec.Name)
	}
}
