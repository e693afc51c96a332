package jaws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/OpenCHAMI/pductl/pkg/pdu"
)

// JAWS API paths, relative to the controller base URL.
const (
	GROUP_CONTROL  = "jaws/control/groups"
	GROUP_MONITOR  = "jaws/monitor/groups"
	OUTLET_CONTROL = "jaws/control/outlets"
	OUTLET_MONITOR = "jaws/monitor/outlets"
)

// OutletEntry is one element of the outlet monitor table.
type OutletEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// GroupEntry is one element of the group monitor table. OutletAccess
// lists the member outlet IDs of the group.
type GroupEntry struct {
	Name         string   `json:"name"`
	State        string   `json:"state"`
	OutletAccess []string `json:"outlet_access"`
}

type controlPayload struct {
	ControlAction string `json:"control_action"`
}

// Codec maps dispatcher Operations onto JAWS requests and validates
// the controller's responses. It implements pdu.Codec.
type Codec struct{}

func (Codec) Request(op pdu.Operation) (pdu.Request, error) {
	switch op.Kind {
	case pdu.OpStatus:
		path := OUTLET_MONITOR
		if op.Scope == pdu.ScopeGroup {
			path = GROUP_MONITOR
		}
		return pdu.Request{Method: http.MethodGet, Path: path}, nil
	case pdu.OpPower:
		path := OUTLET_CONTROL
		if op.Scope == pdu.ScopeGroup {
			path = GROUP_CONTROL
		}
		body, err := json.Marshal(controlPayload{ControlAction: string(op.Action)})
		if err != nil {
			return pdu.Request{}, fmt.Errorf("failed to marshal control payload: %v", err)
		}
		return pdu.Request{
			Method: http.MethodPatch,
			Path:   fmt.Sprintf("%s/%s", path, op.Name),
			Body:   body,
		}, nil
	default:
		return pdu.Request{}, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// Decode validates a 2xx response. Power commands only need the
// acknowledgement; status queries must contain the requested outlet or
// group in the monitor table.
func (Codec) Decode(op pdu.Operation, res pdu.Response) (string, error) {
	if op.Kind == pdu.OpPower {
		return "", nil
	}

	if len(res.Body) == 0 {
		return "", fmt.Errorf("empty response body")
	}

	if op.Scope == pdu.ScopeGroup {
		var groups []GroupEntry
		if err := json.Unmarshal(res.Body, &groups); err != nil {
			return "", fmt.Errorf("failed to unmarshal group monitor table: %v", err)
		}
		for _, g := range groups {
			if g.Name == op.Name {
				return NormalizeState(g.State), nil
			}
		}
		return "", fmt.Errorf("group %s: %w", op.Name, pdu.ErrUnknownName)
	}

	var outlets []OutletEntry
	if err := json.Unmarshal(res.Body, &outlets); err != nil {
		return "", fmt.Errorf("failed to unmarshal outlet monitor table: %v", err)
	}
	for _, o := range outlets {
		if o.ID == op.Name {
			return NormalizeState(o.State), nil
		}
	}
	return "", fmt.Errorf("outlet %s: %w", op.Name, pdu.ErrUnknownName)
}

// NormalizeState folds the controller's state strings ("On", "Off",
// "Pend On", ...) into the lower-case values the report uses. Anything
// unrecognized becomes "unknown".
func NormalizeState(state string) string {
	switch s := strings.ToLower(strings.TrimSpace(state)); s {
	case "on", "off":
		return s
	case "pend on", "pend off", "reboot", "rebooting":
		return "reboot-pending"
	default:
		// controllers report more states than the four the report
		// carries ("Idle On", "LOff", "Error", ...)
		return "unknown"
	}
}
