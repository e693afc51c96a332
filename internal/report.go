package pductl

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
)

// WriteReport renders a dispatch report. The list format prints one
// line per outcome; json/yaml marshal the whole report.
func WriteReport(w io.Writer, report *pdu.Report, f format.DataFormat) error {
	if f == format.FORMAT_LIST {
		for _, o := range report.Outcomes() {
			fmt.Fprintln(w, renderOutcome(o))
		}
		return nil
	}
	b, err := format.Marshal(report, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", b)
	return nil
}

func renderOutcome(o pdu.Outcome) string {
	if o.Operation.Kind == pdu.OpStatus {
		switch {
		case o.OK:
			return fmt.Sprintf("%-40s %-6s %s", o.Target, o.Operation.Name, o.State)
		case o.Failure == pdu.FailureInvalid:
			// matches the status table the original tool printed
			return fmt.Sprintf("%-40s %-6s INVALID %s NAME", o.Target, o.Operation.Name, strings.ToUpper(string(o.Operation.Scope)))
		default:
			return fmt.Sprintf("%-40s %-6s FAILED: %s", o.Target, o.Operation.Name, o.Message)
		}
	}
	if o.OK {
		return fmt.Sprintf("Success, %s sent for %s %s at %s", o.Operation.Action, o.Operation.Scope, o.Operation.Name, o.Target)
	}
	return fmt.Sprintf("Failed, %s for %s %s at %s: %s (%d attempts)",
		o.Operation.Action, o.Operation.Scope, o.Operation.Name, o.Target, o.Message, o.Attempts)
}
