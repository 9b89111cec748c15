package mysql

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"

	"mosaic/pkg/errors"
)

// MySQL server error numbers the reconciler cares about
const (
	errLockDeadlock    = 1213 // ER_LOCK_DEADLOCK
	errLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	errBadFieldError   = 1054 // ER_BAD_FIELD_ERROR
	errNoSuchTable     = 1146 // ER_NO_SUCH_TABLE
)

// translate maps driver errors onto the domain taxonomy: deadlocks and lock
// waits become ErrLockContention (retryable), missing tables/columns become
// ErrSchemaMismatch (fatal), lost connections become ErrUnavailable (fatal).
func translate(err error, table string) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errLockDeadlock, errLockWaitTimeout:
			return errors.Wrapf(errors.ErrLockContention, "%s: %v", table, err)
		case errBadFieldError, errNoSuchTable:
			return errors.NewSchemaError(table, "", err)
		}
	}

	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return errors.Wrapf(errors.ErrUnavailable, "%s: %v", table, err)
	}

	return errors.Wrapf(err, "%s", table)
}
