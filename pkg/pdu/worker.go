package pdu

import "context"

// runTarget executes one Target's ordered Operation list strictly
// sequentially. The JAWS session on a controller is stateful, so
// operations against one PDU must never overlap; a failed Operation
// does not stop the remaining ones.
func runTarget(ctx context.Context, exec OperationExecutor, tp TargetPlan) TargetReport {
	tr := TargetReport{
		Target:   tp.Target,
		Outcomes: make([]Outcome, 0, len(tp.Operations)),
	}
	for _, op := range tp.Operations {
		tr.Outcomes = append(tr.Outcomes, exec.Execute(ctx, tp.Target, op))
	}
	return tr
}
