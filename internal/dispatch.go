// The internal package implements the API routines behind the pductl
// CLI commands. Each subcommand has a corresponding routine here that
// wires the resolver, the JAWS transport, and the dispatcher together.
package pductl

import (
	"context"
	"time"

	"github.com/OpenCHAMI/pductl/internal/cache/sqlite"
	"github.com/OpenCHAMI/pductl/pkg/jaws"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/rs/zerolog/log"
)

// DispatchParams collects everything a dispatch run needs beyond the
// resolved operation config itself.
type DispatchParams struct {
	Store       secrets.SecretStore
	Timeout     int // per-attempt transport timeout in seconds
	Concurrency int
	Retries     int
	RetryDelay  time.Duration
	CACertPath  string
	CachePath   string
}

// RunOperations resolves the config into per-PDU operation lists,
// dispatches them concurrently, and returns the merged report. The
// only error returned is a configuration error raised before any
// concurrent work starts; operation failures are outcome values in
// the report.
func RunOperations(ctx context.Context, cfg pdu.Config, params *DispatchParams) (*pdu.Report, error) {
	plan, err := pdu.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	opts := []jaws.Option{
		jaws.WithSecretStore(params.Store),
		jaws.WithTimeout(time.Duration(params.Timeout) * time.Second),
	}
	if params.CACertPath != "" {
		opts = append(opts, jaws.WithSecureTLS(params.CACertPath))
	}
	client := jaws.NewClient(opts...)

	dispatcher := &pdu.Dispatcher{
		Exec: &pdu.Executor{
			Transport:   client,
			Codec:       jaws.Codec{},
			MaxAttempts: params.Retries,
			Interval:    params.RetryDelay,
		},
		Concurrency: params.Concurrency,
	}
	report := dispatcher.Dispatch(ctx, plan)

	if params.CachePath != "" {
		if err := cacheStatusOutcomes(params.CachePath, report); err != nil {
			log.Warn().Err(err).Msg("failed to cache outlet states")
		}
	}
	return report, nil
}

// cacheStatusOutcomes records every successful status outcome so
// `pductl list` can show last-known states without touching the
// controllers.
func cacheStatusOutcomes(path string, report *pdu.Report) error {
	var states []sqlite.OutletState
	now := time.Now()
	for _, o := range report.Outcomes() {
		if !o.OK || o.Operation.Kind != pdu.OpStatus {
			continue
		}
		states = append(states, sqlite.OutletState{
			Host:      o.Target.Host,
			Scope:     string(o.Operation.Scope),
			Name:      o.Operation.Name,
			State:     o.State,
			Timestamp: now,
		})
	}
	if len(states) == 0 {
		return nil
	}
	return sqlite.InsertOutletStates(path, states...)
}
