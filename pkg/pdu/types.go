// Package pdu implements the multi-target command dispatcher for iPDU
// controllers: resolving a configuration into per-controller operation
// lists, executing them concurrently with bounded retries, and merging
// the results into an ordered report.
package pdu

import "fmt"

// Target identifies one PDU controller by hostname, IPv4, or IPv6
// address. IPv6 addresses may carry a zone suffix (e.g.
// "FE80::20A:9CFF:FE62:4EE%bond0.hmn0") which is preserved verbatim
// as the display key.
type Target struct {
	Host string `json:"host"`
}

func (t Target) String() string {
	return t.Host
}

type OpKind string

const (
	OpStatus OpKind = "status"
	OpPower  OpKind = "power"
)

type Scope string

const (
	ScopeGroup  Scope = "group"
	ScopeOutlet Scope = "outlet"
)

// Action is a JAWS control action. ActionStatus is not a control
// action the controller understands; it marks a pure status query
// when used in configuration.
type Action string

const (
	ActionStatus Action = "status"
	ActionOn     Action = "on"
	ActionOff    Action = "off"
	ActionReboot Action = "reboot"
)

// Operation is one requested status query or power action against a
// single outlet or group on one Target. Operations are created by
// Resolve() and never change afterwards.
type Operation struct {
	Kind   OpKind `json:"kind"`
	Scope  Scope  `json:"scope"`
	Name   string `json:"name"`
	Action Action `json:"action,omitempty"`
}

func (o Operation) String() string {
	if o.Kind == OpStatus {
		return fmt.Sprintf("status of %s %s", o.Scope, o.Name)
	}
	return fmt.Sprintf("%s for %s %s", o.Action, o.Scope, o.Name)
}

type FailureKind string

const (
	// FailureAuth marks a credential rejection (401/403); never retried.
	FailureAuth FailureKind = "auth"
	// FailureInvalid marks a malformed operation or unknown outlet/group
	// name; never retried.
	FailureInvalid FailureKind = "invalid"
	// FailureExhausted marks a retriable condition that persisted past
	// the attempt budget.
	FailureExhausted FailureKind = "exhausted"
)

// Outcome records the result of executing one Operation against one
// Target, including how many attempts were consumed. Outcomes are
// append-only facts; exactly one is produced per resolved Operation.
type Outcome struct {
	Target    Target      `json:"target"`
	Operation Operation   `json:"operation"`
	OK        bool        `json:"ok"`
	State     string      `json:"state,omitempty"`
	Failure   FailureKind `json:"failure,omitempty"`
	Message   string      `json:"message,omitempty"`
	Attempts  int         `json:"attempts"`
}

// TargetReport holds the ordered Outcomes for a single Target.
type TargetReport struct {
	Target   Target    `json:"target"`
	Outcomes []Outcome `json:"outcomes"`
}

// Report is the complete result set of one dispatch: one TargetReport
// per declared Target, in declaration order, each preserving its
// Operation order regardless of completion timing.
type Report struct {
	Targets []TargetReport `json:"targets"`
}

// HasFailures reports whether any Outcome in the Report failed. The
// CLI layer uses this to decide the process exit code.
func (r *Report) HasFailures() bool {
	for _, tr := range r.Targets {
		for _, o := range tr.Outcomes {
			if !o.OK {
				return true
			}
		}
	}
	return false
}

// Outcomes returns every Outcome in report order.
func (r *Report) Outcomes() []Outcome {
	var all []Outcome
	for _, tr := range r.Targets {
		all = append(all, tr.Outcomes...)
	}
	return all
}
