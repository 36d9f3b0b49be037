package datastore

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/precivox/precivox-images/internal/errors"
)

// Sentinel errors, matched with errors.Is through StoreError.
var (
	ErrRecordNotFound   = errors.NewStd("image record not found")
	ErrDuplicateKey     = errors.NewStd("active image record already exists for key")
	ErrStoreUnavailable = errors.NewStd("image record store unavailable")
	ErrInvalidRecord    = errors.NewStd("invalid image record")
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// StoreError reports a failed store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("datastore %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCategory lets the enhanced error builder classify store failures.
func (e *StoreError) ErrorCategory() errors.ErrorCategory {
	switch {
	case errors.Is(e.Err, ErrRecordNotFound):
		return errors.CategoryNotFound
	case errors.Is(e.Err, ErrDuplicateKey):
		return errors.CategoryConflict
	case errors.Is(e.Err, ErrInvalidRecord):
		return errors.CategoryValidation
	default:
		return errors.CategoryDatabase
	}
}

// dbError wraps err in a StoreError carried by an enhanced error, so callers
// can match the sentinels with errors.Is and the StoreError with errors.As.
func dbError(err error, operation string, context ...any) error {
	if err == nil {
		return nil
	}

	err = translateError(err)
	storeErr := &StoreError{Op: operation, Err: err}

	builder := errors.New(storeErr).
		Component("datastore").
		Context("operation", operation)

	if errors.Is(err, ErrStoreUnavailable) {
		builder = builder.Priority(errors.PriorityHigh)
	}

	for i := 0; i+1 < len(context); i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// translateError maps driver and GORM errors onto the package sentinels,
// keeping the original error in the chain.
func translateError(err error) error {
	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrDuplicateKey),
		errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrInvalidRecord):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrRecordNotFound, err)
	case isDuplicateKeyError(err):
		return errors.Join(ErrDuplicateKey, err)
	case isUnavailableError(err):
		return errors.Join(ErrStoreUnavailable, err)
	default:
		return err
	}
}

// isDuplicateKeyError recognizes unique violations from every supported driver.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return true
	}

	return false
}

func isUnavailableError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sql: database is closed") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is locked")
}
