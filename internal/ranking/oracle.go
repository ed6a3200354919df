// internal/ranking/oracle.go
package ranking

import (
	"context"
	"errors"
	"fmt"

	"civicmatch-workers/internal/models"
)

// Oracle is the external scoring/explanation/summary capability. It is
// untrusted: any call may fail, and callers must treat a failure as a signal
// to fall back, never as a reason to abort the ranking.
type Oracle interface {
	// Score rates how well a project matches the interests, 1-10.
	Score(ctx context.Context, interests string, project models.Project) (int, error)
	// Explain returns a short free-text justification for the match.
	Explain(ctx context.Context, interests string, project models.Project) (string, error)
	// Summarize returns an aggregate summary of the top ranked projects.
	Summarize(ctx context.Context, interests string, top []ScoredProject) (string, error)
}

// OracleErrorKind classifies expected oracle failure modes.
type OracleErrorKind string

const (
	OracleUnavailable OracleErrorKind = "ORACLE_UNAVAILABLE"
	OracleTransport   OracleErrorKind = "ORACLE_TRANSPORT_FAILURE"
	OracleMalformed   OracleErrorKind = "ORACLE_MALFORMED_RESPONSE"
)

// OracleError is the typed failure signal every oracle call returns instead
// of panicking or leaking vendor errors.
type OracleError struct {
	Kind OracleErrorKind
	Err  error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

func NewOracleError(kind OracleErrorKind, err error) *OracleError {
	return &OracleError{Kind: kind, Err: err}
}

// OracleErrorKindOf extracts the failure kind, defaulting to transport for
// untyped errors.
func OracleErrorKindOf(err error) OracleErrorKind {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return OracleTransport
}

var errOracleDisabled = errors.New("oracle is not configured")

type disabledOracle struct{}

// Disabled returns an oracle whose calls all fail immediately with the
// unavailable kind. It is the degraded mode used when no credentials are
// configured, and the stand-in of choice in tests.
func Disabled() Oracle { return disabledOracle{} }

func (disabledOracle) Score(context.Context, string, models.Project) (int, error) {
	return 0, NewOracleError(OracleUnavailable, errOracleDisabled)
}

func (disabledOracle) Explain(context.Context, string, models.Project) (string, error) {
	return "", NewOracleError(OracleUnavailable, errOracleDisabled)
}

func (disabledOracle) Summarize(context.Context, string, []ScoredProject) (string, error) {
	return "", NewOracleError(OracleUnavailable, errOracleDisabled)
}
