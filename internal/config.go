package pductl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"gopkg.in/yaml.v3"
)

// scopeEntry is one group or outlet in a sequence file. The original
// tooling accepted either a bare name or a {name, operation} object,
// so both forms decode here.
type scopeEntry struct {
	Name      string `json:"name" yaml:"name"`
	Operation string `json:"operation" yaml:"operation"`
}

func (e *scopeEntry) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.Name)
	}
	type alias scopeEntry
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*e = scopeEntry(a)
	return nil
}

func (e *scopeEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Name = node.Value
		return nil
	}
	type alias scopeEntry
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*e = scopeEntry(a)
	return nil
}

// Sequence mirrors the power sequence file schema: the user to
// authenticate as, the PDU controllers to address, and the groups and
// outlets to operate on with their per-scope operations.
type Sequence struct {
	User    string       `json:"user" yaml:"user"`
	PDUs    []string     `json:"pdus" yaml:"pdus"`
	Groups  []scopeEntry `json:"groups" yaml:"groups"`
	Outlets []scopeEntry `json:"outlets" yaml:"outlets"`
}

// LoadSequence reads a sequence file, decoding JSON or YAML based on
// the file extension (JSON when ambiguous, matching the original
// format).
func LoadSequence(path string) (*Sequence, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence file: %w", err)
	}
	var seq Sequence
	f := format.DataFormatFromFileExt(path, format.FORMAT_JSON)
	if err := format.Unmarshal(b, &seq, f); err != nil {
		return nil, fmt.Errorf("failed to parse sequence file %s: %w", path, err)
	}
	return &seq, nil
}

// BuildConfig merges command-line targets and scopes over an optional
// sequence file. CLI groups/outlets replace same-name file entries,
// and a CLI action overrides every per-scope action; file entries keep
// their own operations otherwise.
func BuildConfig(seq *Sequence, pdus, groups, outlets []string, action pdu.Action) pdu.Config {
	cfg := pdu.Config{Action: action}
	if seq != nil {
		cfg.PDUs = append(cfg.PDUs, seq.PDUs...)
		for _, e := range seq.Groups {
			cfg.Groups = append(cfg.Groups, pdu.ScopeSpec{Name: e.Name, Action: pdu.Action(e.Operation)})
		}
		for _, e := range seq.Outlets {
			cfg.Outlets = append(cfg.Outlets, pdu.ScopeSpec{Name: e.Name, Action: pdu.Action(e.Operation)})
		}
	}
	cfg.PDUs = append(cfg.PDUs, pdus...)
	cfg.Groups = mergeScopes(cfg.Groups, groups)
	cfg.Outlets = mergeScopes(cfg.Outlets, outlets)
	return cfg
}

// mergeScopes replaces same-name entries with the command-line ones,
// which pick up their action from the config-level override.
func mergeScopes(specs []pdu.ScopeSpec, names []string) []pdu.ScopeSpec {
	for _, name := range names {
		kept := specs[:0]
		for _, s := range specs {
			if s.Name != name {
				kept = append(kept, s)
			}
		}
		specs = append(kept, pdu.ScopeSpec{Name: name})
	}
	return specs
}
