package retry

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/dsqlctl/internal/common"
)

// Class tells the executor whether a failure is worth another attempt.
type Class int

const (
	ClassTransient Class = iota
	ClassTerminal
)

func (c Class) String() string {
	if c == ClassTerminal {
		return "terminal"
	}
	return "transient"
}

// Classifier maps an operation error to a Class.
type Classifier func(error) Class

// transientSQLStates are server-reported conditions that may clear on retry.
// Class 08 (connection exceptions) is matched by prefix.
var transientSQLStates = map[string]struct{}{
	"40001": {}, // serialization_failure, also DSQL optimistic concurrency (OC000/OC001)
	"40P01": {}, // deadlock_detected
	"53000": {}, // insufficient_resources
	"53300": {}, // too_many_connections
	"55P03": {}, // lock_not_available
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
	"57014": {}, // query_canceled (statement timeout on the server)
}

// DefaultClassifier treats domain, credential, encoding and confirmation
// errors as terminal, as well as cancellation of the caller's context.
// SQL errors are transient only for the SQLSTATEs above. Anything else is
// assumed to come from the transport (dropped connections, timeouts, TLS) and
// is retried.
func DefaultClassifier(err error) Class {
	switch {
	case err == nil:
		return ClassTerminal
	case errors.Is(err, common.ErrorConflict),
		errors.Is(err, common.ErrorCredential),
		errors.Is(err, common.ErrorEncoding),
		errors.Is(err, common.ErrorNotConfirmed),
		errors.Is(err, common.ErrorNotFound):
		return ClassTerminal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassTerminal
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if IsTransientSQLState(pgErr.Code) {
			return ClassTransient
		}
		return ClassTerminal
	}

	return ClassTransient
}

// IsTransientSQLState reports whether code names a condition that may clear
// on retry.
func IsTransientSQLState(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	_, ok := transientSQLStates[code]
	return ok
}
