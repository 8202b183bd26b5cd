// Package modules implements declarative, idempotent operations against a
// BMC. Each operation reads the current state, works out what differs from
// the requested state and only then issues mutating calls.
package modules

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/williamzujkowski/obmc-manager/internal/bmc"
	"github.com/williamzujkowski/obmc-manager/internal/metrics"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

const (
	msgChanged   = "Operation successful."
	msgUnchanged = "No changes required."
)

// ErrPreconditionFailed is returned when the device is not in a state that
// allows the operation, e.g. a firmware update on a running host.
var ErrPreconditionFailed = errors.New("precondition failed")

// State is the desired presence of a resource.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

func (s State) absent() bool { return s == StateAbsent }

// Result reports the outcome of one operation.
type Result struct {
	Changed bool           `json:"changed"`
	Msg     string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// Runner executes operations against one connected BMC.
type Runner struct {
	client  bmc.Client
	metrics *metrics.Operations
	check   bool
}

// NewRunner returns a runner for client. m may be nil.
func NewRunner(client bmc.Client, m *metrics.Operations) *Runner {
	return &Runner{client: client, metrics: m}
}

// WithCheckMode returns a copy of the runner that reports what would change
// without changing it.
func (r *Runner) WithCheckMode(check bool) *Runner {
	c := *r
	c.check = check
	return &c
}

// CheckMode reports whether mutations are suppressed.
func (r *Runner) CheckMode() bool { return r.check }

// Client returns the underlying device client.
func (r *Runner) Client() bmc.Client { return r.client }

type change func() error

// run executes an operation body and records its outcome.
func (r *Runner) run(operation string, fn func() (Result, error)) (Result, error) {
	res, err := fn()

	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "failed"
		log.Error().Err(err).Str("operation", operation).Msg("operation failed")
	case res.Changed:
		outcome = "changed"
		log.Info().Str("operation", operation).Bool("check_mode", r.check).Msg(res.Msg)
	default:
		log.Debug().Str("operation", operation).Msg(res.Msg)
	}
	r.metrics.Record(operation, outcome)

	if err != nil {
		return res, fmt.Errorf("%s: %w", operation, err)
	}
	return res, nil
}

// apply runs changes unless in check mode. No changes means nothing to do.
func (r *Runner) apply(msg string, changes ...change) (Result, error) {
	if len(changes) == 0 {
		return Result{Msg: msgUnchanged}, nil
	}
	if !r.check {
		for _, c := range changes {
			if err := c(); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{Changed: true, Msg: msg}, nil
}

// invalid wraps an ozzo validation error so callers can match it as a
// SchemaValidationError.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return typederrors.NewSchemaValidationError("invalid parameters", err)
}

func invalidf(format string, args ...any) error {
	return typederrors.NewSchemaValidationError(fmt.Sprintf(format, args...), nil)
}

// opt returns v, or nil when the field could not be read.
func opt[T any](v T, err error) any {
	if err != nil {
		return nil
	}
	return v
}
