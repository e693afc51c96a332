package pdu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

// transportFunc adapts a function to the Transport interface for
// driving the executor and dispatcher without a live controller.
type transportFunc func(ctx context.Context, target Target, req Request) (Response, error)

func (f transportFunc) Send(ctx context.Context, target Target, req Request) (Response, error) {
	return f(ctx, target, req)
}

// stubCodec issues one GET per operation and reports the response body
// as the observed state.
type stubCodec struct{}

func (stubCodec) Request(op Operation) (Request, error) {
	return Request{Method: "GET", Path: "/" + op.Name}, nil
}

func (stubCodec) Decode(op Operation, res Response) (string, error) {
	if len(res.Body) == 0 {
		return "", errors.New("empty body")
	}
	return string(res.Body), nil
}

func newTestExecutor(tr Transport) *Executor {
	return &Executor{
		Transport:   tr,
		Codec:       stubCodec{},
		MaxAttempts: 5,
		Interval:    time.Millisecond,
	}
}

func TestExecutorSucceedsAfterTransientFailures(t *testing.T) {
	var calls int
	exec := newTestExecutor(transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
		calls++
		if calls < 3 {
			return Response{Status: 503}, nil
		}
		return Response{Status: 200, Body: []byte("On")}, nil
	}))

	op := Operation{Kind: OpStatus, Scope: ScopeOutlet, Name: "AA1"}
	outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)

	if !outcome.OK {
		t.Fatalf("Expected success, got failure: %s", outcome.Message)
	}
	if outcome.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", outcome.Attempts)
	}
	if outcome.State != "On" {
		t.Errorf("Expected state On, got %q", outcome.State)
	}
}

func TestExecutorExhaustsAttemptBudget(t *testing.T) {
	var calls int
	exec := newTestExecutor(transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
		calls++
		return Response{}, errors.New("connection refused")
	}))

	op := Operation{Kind: OpPower, Scope: ScopeOutlet, Name: "AA1", Action: ActionOn}
	outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)

	if outcome.OK {
		t.Fatal("Expected failure, got success")
	}
	if calls != 5 || outcome.Attempts != 5 {
		t.Errorf("Expected exactly 5 attempts, got calls=%d attempts=%d", calls, outcome.Attempts)
	}
	if outcome.Failure != FailureExhausted {
		t.Errorf("Expected FailureExhausted, got %s", outcome.Failure)
	}
	if !strings.Contains(outcome.Message, "exceeded 5 attempts") {
		t.Errorf("Expected message to record the budget, got %q", outcome.Message)
	}
}

func TestExecutorAuthRejectionIsNotRetried(t *testing.T) {
	var calls int
	exec := newTestExecutor(transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
		calls++
		return Response{Status: 401}, nil
	}))

	op := Operation{Kind: OpStatus, Scope: ScopeGroup, Name: "Compute"}
	outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)

	if outcome.OK {
		t.Fatal("Expected failure, got success")
	}
	if calls != 1 || outcome.Attempts != 1 {
		t.Errorf("Expected exactly 1 attempt for auth rejection, got calls=%d attempts=%d", calls, outcome.Attempts)
	}
	if outcome.Failure != FailureAuth {
		t.Errorf("Expected FailureAuth, got %s", outcome.Failure)
	}
}

func TestExecutorInvalidOperationIsNotRetried(t *testing.T) {
	for _, status := range []int{400, 404, 405, 422} {
		var calls int
		exec := newTestExecutor(transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
			calls++
			return Response{Status: status}, nil
		}))

		op := Operation{Kind: OpPower, Scope: ScopeOutlet, Name: "nope", Action: ActionOff}
		outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)

		if calls != 1 {
			t.Errorf("Status %d: expected 1 attempt, got %d", status, calls)
		}
		if outcome.Failure != FailureInvalid {
			t.Errorf("Status %d: expected FailureInvalid, got %s", status, outcome.Failure)
		}
	}
}

func TestExecutorUnknownNameIsNotRetried(t *testing.T) {
	exec := &Executor{
		Transport: transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
			return Response{Status: 200, Body: []byte("[]")}, nil
		}),
		Codec: codecFunc{
			request: func(op Operation) (Request, error) { return Request{Method: "GET", Path: "/"}, nil },
			decode: func(op Operation, res Response) (string, error) {
				return "", fmt.Errorf("%s %s: %w", op.Scope, op.Name, ErrUnknownName)
			},
		},
		MaxAttempts: 5,
		Interval:    time.Millisecond,
	}

	op := Operation{Kind: OpStatus, Scope: ScopeOutlet, Name: "ZZ9"}
	outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)

	if outcome.Attempts != 1 {
		t.Errorf("Expected 1 attempt for unknown name, got %d", outcome.Attempts)
	}
	if outcome.Failure != FailureInvalid {
		t.Errorf("Expected FailureInvalid, got %s", outcome.Failure)
	}
}

func TestExecutorRetriesEmptyBody(t *testing.T) {
	var calls int
	exec := newTestExecutor(transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
		calls++
		if calls < 2 {
			return Response{Status: 200}, nil // empty body
		}
		return Response{Status: 200, Body: []byte("Off")}, nil
	}))

	op := Operation{Kind: OpStatus, Scope: ScopeOutlet, Name: "AA1"}
	outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)

	if !outcome.OK || outcome.Attempts != 2 {
		t.Errorf("Expected success on attempt 2, got ok=%v attempts=%d", outcome.OK, outcome.Attempts)
	}
}

func TestExecutorReleasesRetryGoroutines(t *testing.T) {
	exec := newTestExecutor(transportFunc(func(ctx context.Context, target Target, req Request) (Response, error) {
		return Response{Status: 200, Body: []byte("On")}, nil
	}))
	op := Operation{Kind: OpStatus, Scope: ScopeOutlet, Name: "AA1"}

	before := runtime.NumGoroutine()
	for i := 0; i < 200; i++ {
		outcome := exec.Execute(context.Background(), Target{Host: "x3000m0"}, op)
		if !outcome.OK {
			t.Fatalf("Expected success, got %+v", outcome)
		}
	}

	// retry controllers shut down asynchronously after Execute returns
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+10 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected goroutine count to settle near %d, still at %d after 200 Execute calls",
		before, runtime.NumGoroutine())
}

type codecFunc struct {
	request func(op Operation) (Request, error)
	decode  func(op Operation, res Response) (string, error)
}

func (c codecFunc) Request(op Operation) (Request, error)             { return c.request(op) }
func (c codecFunc) Decode(op Operation, res Response) (string, error) { return c.decode(op, res) }

func mustResolve(t *testing.T, cfg Config) *Plan {
	t.Helper()
	plan, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Failed to resolve config: %v", err)
	}
	return plan
}

func TestDispatchReportOrderIsDeterministic(t *testing.T) {
	plan := mustResolve(t, Config{
		PDUs:    []string{"pdu0", "pdu1", "pdu2"},
		Groups:  []ScopeSpec{{Name: "Compute"}},
		Outlets: []ScopeSpec{{Name: "AA1"}, {Name: "AA2"}},
		Action:  ActionStatus,
	})

	// The first declared target is the slowest, so completion order is
	// the reverse of declaration order.
	delays := map[string]time.Duration{
		"pdu0": 30 * time.Millisecond,
		"pdu1": 10 * time.Millisecond,
		"pdu2": 0,
	}
	d := &Dispatcher{Exec: newTestExecutor(transportFunc(
		func(ctx context.Context, target Target, req Request) (Response, error) {
			time.Sleep(delays[target.Host])
			return Response{Status: 200, Body: []byte("On")}, nil
		}))}

	report := d.Dispatch(context.Background(), plan)

	if len(report.Targets) != 3 {
		t.Fatalf("Expected 3 target reports, got %d", len(report.Targets))
	}
	for i, tr := range report.Targets {
		want := fmt.Sprintf("pdu%d", i)
		if tr.Target.Host != want {
			t.Errorf("Report slot %d: expected %s, got %s", i, want, tr.Target.Host)
		}
		if len(tr.Outcomes) != 3 {
			t.Fatalf("Expected 3 outcomes for %s, got %d", tr.Target, len(tr.Outcomes))
		}
		wantOps := []string{"Compute", "AA1", "AA2"}
		for j, o := range tr.Outcomes {
			if o.Operation.Name != wantOps[j] {
				t.Errorf("Outcome %d for %s: expected %s, got %s", j, tr.Target, wantOps[j], o.Operation.Name)
			}
		}
	}
	if report.HasFailures() {
		t.Error("Expected no failures")
	}

	// a second dispatch of the same plan yields the same report shape
	again := d.Dispatch(context.Background(), plan)
	for i := range report.Targets {
		if again.Targets[i].Target != report.Targets[i].Target {
			t.Errorf("Repeat dispatch reordered targets at slot %d", i)
		}
		if len(again.Targets[i].Outcomes) != len(report.Targets[i].Outcomes) {
			t.Errorf("Repeat dispatch changed outcome count for %s", report.Targets[i].Target)
		}
	}
}

func TestDispatchIsolatesTargetFailures(t *testing.T) {
	plan := mustResolve(t, Config{
		PDUs:    []string{"10.1.1.1", "10.1.1.2"},
		Outlets: []ScopeSpec{{Name: "AA1"}},
		Action:  ActionStatus,
	})

	d := &Dispatcher{Exec: newTestExecutor(transportFunc(
		func(ctx context.Context, target Target, req Request) (Response, error) {
			if target.Host == "10.1.1.1" {
				return Response{Status: 503}, nil
			}
			return Response{Status: 200, Body: []byte("On")}, nil
		}))}

	report := d.Dispatch(context.Background(), plan)

	bad := report.Targets[0].Outcomes[0]
	if bad.OK || bad.Failure != FailureExhausted || bad.Attempts != 5 {
		t.Errorf("Expected exhausted failure after 5 attempts on 10.1.1.1, got %+v", bad)
	}
	good := report.Targets[1].Outcomes[0]
	if !good.OK || good.State != "On" {
		t.Errorf("Expected 10.1.1.2 to succeed despite the sibling failure, got %+v", good)
	}
	if !report.HasFailures() {
		t.Error("Expected report to carry the failure")
	}
}

func TestDispatchTwoTargetsUnevenRetries(t *testing.T) {
	plan := mustResolve(t, Config{
		PDUs:    []string{"10.1.1.1", "10.1.1.2"},
		Outlets: []ScopeSpec{{Name: "AA1"}},
		Action:  ActionOff,
	})

	var mu sync.Mutex
	calls := map[string]int{}
	d := &Dispatcher{Exec: newTestExecutor(transportFunc(
		func(ctx context.Context, target Target, req Request) (Response, error) {
			mu.Lock()
			calls[target.Host]++
			n := calls[target.Host]
			mu.Unlock()
			if target.Host == "10.1.1.2" && n <= 3 {
				return Response{Status: 503}, nil
			}
			return Response{Status: 200, Body: []byte("ack")}, nil
		}))}

	report := d.Dispatch(context.Background(), plan)

	first := report.Targets[0].Outcomes[0]
	second := report.Targets[1].Outcomes[0]
	if report.Targets[0].Target.Host != "10.1.1.1" {
		t.Errorf("Target order not preserved: %+v", report.Targets)
	}
	if !first.OK || first.Attempts != 1 {
		t.Errorf("Expected 10.1.1.1 to succeed in 1 attempt, got %+v", first)
	}
	if !second.OK || second.Attempts != 4 {
		t.Errorf("Expected 10.1.1.2 to succeed in 4 attempts, got %+v", second)
	}
}

func TestDispatchOperationsPerTargetAreSequential(t *testing.T) {
	plan := mustResolve(t, Config{
		PDUs:    []string{"x3000m0"},
		Outlets: []ScopeSpec{{Name: "AA1"}, {Name: "AA2"}, {Name: "AA3"}},
		Action:  ActionStatus,
	})

	var mu sync.Mutex
	inflight := 0
	d := &Dispatcher{Exec: newTestExecutor(transportFunc(
		func(ctx context.Context, target Target, req Request) (Response, error) {
			mu.Lock()
			inflight++
			if inflight > 1 {
				mu.Unlock()
				t.Error("Concurrent requests observed against a single target")
				return Response{Status: 500}, nil
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inflight--
			mu.Unlock()
			return Response{Status: 200, Body: []byte("On")}, nil
		}))}

	report := d.Dispatch(context.Background(), plan)
	if len(report.Targets[0].Outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(report.Targets[0].Outcomes))
	}
}

func TestDispatchConcurrencyCap(t *testing.T) {
	plan := mustResolve(t, Config{
		PDUs:    []string{"pdu0", "pdu1", "pdu2", "pdu3"},
		Outlets: []ScopeSpec{{Name: "AA1"}},
		Action:  ActionStatus,
	})

	var mu sync.Mutex
	inflight, peak := 0, 0
	d := &Dispatcher{
		Concurrency: 2,
		Exec: newTestExecutor(transportFunc(
			func(ctx context.Context, target Target, req Request) (Response, error) {
				mu.Lock()
				inflight++
				if inflight > peak {
					peak = inflight
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inflight--
				mu.Unlock()
				return Response{Status: 200, Body: []byte("On")}, nil
			})),
	}

	report := d.Dispatch(context.Background(), plan)
	if len(report.Targets) != 4 {
		t.Fatalf("Expected 4 target reports, got %d", len(report.Targets))
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("Expected at most 2 targets in flight, observed %d", peak)
	}
}

func TestReportOutcomeCardinality(t *testing.T) {
	plan := mustResolve(t, Config{
		PDUs:    []string{"pdu0", "pdu1"},
		Groups:  []ScopeSpec{{Name: "Compute"}},
		Outlets: []ScopeSpec{{Name: "AA1"}, {Name: "AA2"}},
		Action:  ActionReboot,
	})

	d := &Dispatcher{Exec: newTestExecutor(transportFunc(
		func(ctx context.Context, target Target, req Request) (Response, error) {
			if target.Host == "pdu1" {
				return Response{Status: 403}, nil
			}
			return Response{Status: 200, Body: []byte("ack")}, nil
		}))}

	report := d.Dispatch(context.Background(), plan)

	// exactly one outcome per resolved operation, success or not
	if got := len(report.Outcomes()); got != 6 {
		t.Errorf("Expected 6 outcomes, got %d", got)
	}
	for _, o := range report.Targets[1].Outcomes {
		if o.Failure != FailureAuth {
			t.Errorf("Expected auth failure on pdu1, got %+v", o)
		}
	}
}
