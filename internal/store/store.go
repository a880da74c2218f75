package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/opentransit/regioncore/internal/bus"
	"github.com/opentransit/regioncore/internal/infrastructure/database"
)

// Logger is the minimal logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Store executes reads and transactional mutations against logical resource
// paths. It owns no ambient state: the database handle and notification bus
// are injected at construction and the caller controls their lifecycle.
//
// Migration must have completed before the first Store operation; wire the
// Store only after database.Migrate has returned.
type Store struct {
	db     *database.DB
	bus    *bus.Bus
	logger Logger
}

// New creates a Store over an open, migrated database.
// The bus may be nil, in which case change notifications are discarded.
func New(db *database.DB, b *bus.Bus) *Store {
	return &Store{
		db:     db,
		bus:    b,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Query runs a read against the resource path and returns positional rows
// in the fixed projection order for that resource.
//
// The filter is a SQL predicate with ? placeholders bound to args; it is
// ANDed with the item id predicate when the path names a single row. An
// empty orderBy leaves row order unspecified. A "limit" query parameter on
// the path caps the result count.
//
// The returned rows must be closed by the caller.
func (s *Store) Query(ctx context.Context, path, filter string, args []any, orderBy string) (*sql.Rows, error) {
	res, err := ParseResource(path)
	if err != nil {
		return nil, err
	}

	query, queryArgs := buildSelect(res, filter, args, orderBy)
	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", res.Path(), classify(err))
	}
	return rows, nil
}

// Insert adds one row to the resource's table inside a transaction and
// returns the new row's resource address and id.
//
// Inserting to an item path is rejected: the store assigns ids. A caller
// that must force a specific id (catalog sync) supplies an "id" value on
// the collection path instead.
//
// A change notification for the path is published after commit.
func (s *Store) Insert(ctx context.Context, path string, values map[string]any) (string, int64, error) {
	res, err := ParseResource(path)
	if err != nil {
		return "", 0, err
	}
	if res.IsItem() {
		return "", 0, fmt.Errorf("%w: %q", ErrUnsupportedInsert, path)
	}

	cols, args, err := mutationColumns(res, values)
	if err != nil {
		return "", 0, err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		res.Table(),
		strings.Join(cols, ", "),
		placeholders(len(cols)),
	)

	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return classify(err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("inserting into %s: %w", res.Path(), err)
	}

	// A new row always exists after a successful insert, so always notify.
	s.publish(res, bus.OpInsert, 1)

	return res.Collection() + "/" + fmt.Sprint(id), id, nil
}

// Update modifies rows addressed by the path inside a transaction and
// returns the number of rows changed.
//
// For an item path the id predicate is applied and ANDed with the caller's
// filter. A change notification is published after commit only when at
// least one row changed.
func (s *Store) Update(ctx context.Context, path string, values map[string]any, filter string, args []any) (int64, error) {
	res, err := ParseResource(path)
	if err != nil {
		return 0, err
	}

	cols, colArgs, err := mutationColumns(res, values)
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET ", res.Table())
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ?")
	}
	where, whereArgs := buildWhere(res, filter, args)
	sb.WriteString(where)

	affected, err := s.exec(ctx, sb.String(), append(colArgs, whereArgs...))
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", res.Path(), err)
	}

	if affected > 0 {
		s.publish(res, bus.OpUpdate, affected)
	}
	return affected, nil
}

// Delete removes rows addressed by the path inside a transaction and
// returns the number of rows removed. Deleting a region fires the
// region_bounds_cleanup trigger, removing all of its bounds rows in the
// same transaction.
//
// A change notification is published after commit only when at least one
// row was removed.
func (s *Store) Delete(ctx context.Context, path, filter string, args []any) (int64, error) {
	res, err := ParseResource(path)
	if err != nil {
		return 0, err
	}

	where, whereArgs := buildWhere(res, filter, args)
	query := "DELETE FROM " + res.Table() + where

	affected, err := s.exec(ctx, query, whereArgs)
	if err != nil {
		return 0, fmt.Errorf("deleting from %s: %w", res.Path(), err)
	}

	if affected > 0 {
		s.publish(res, bus.OpDelete, affected)
	}
	return affected, nil
}

// exec runs one mutating statement in its own transaction and returns the
// affected row count.
func (s *Store) exec(ctx context.Context, query string, args []any) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return classify(err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return classify(err)
		}
		return nil
	})
	return affected, err
}

// inTx runs fn inside a transaction. Any error rolls the transaction back;
// fn's row changes become visible only after commit.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// publish emits a change notification. Called only after commit; delivery
// is fire-and-forget and can never fail the mutation.
func (s *Store) publish(res Resource, op bus.Operation, affected int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Path:     res.Path(),
		Resource: res.Collection(),
		Op:       op,
		Affected: affected,
	})
	s.logger.Debug("change notification published",
		"path", res.Path(),
		"op", string(op),
		"affected", affected,
	)
}

// buildSelect assembles the SELECT statement for a resource under its fixed
// projection. Caller-requested projections are deliberately ignored for the
// known resources so positional decoding stays stable.
func buildSelect(res Resource, filter string, args []any, orderBy string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(res.Projection(), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(res.Table())

	where, queryArgs := buildWhere(res, filter, args)
	sb.WriteString(where)

	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	if res.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", res.Limit)
	}

	return sb.String(), queryArgs
}

// buildWhere assembles the WHERE clause: the item id predicate (when the
// path names a single row) ANDed with the caller's filter.
func buildWhere(res Resource, filter string, args []any) (string, []any) {
	var parts []string
	var whereArgs []any

	if res.IsItem() {
		parts = append(parts, ColID+" = ?")
		whereArgs = append(whereArgs, res.ID)
	}
	if filter != "" {
		parts = append(parts, "("+filter+")")
		whereArgs = append(whereArgs, args...)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), whereArgs
}

// mutationColumns validates values against the resource's writable column
// allow-list and returns the columns and bind arguments in schema order.
// The allow-list is what makes caller-supplied column names injection-safe.
func mutationColumns(res Resource, values map[string]any) ([]string, []any, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoValues, res.Path())
	}

	allowed := res.columns()
	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, col := range allowed {
		if v, ok := values[col]; ok {
			cols = append(cols, col)
			args = append(args, v)
		}
	}

	if len(cols) != len(values) {
		for key := range values {
			if !contains(allowed, key) {
				return nil, nil, fmt.Errorf("%w: %q for %s", ErrUnknownColumn, key, res.Path())
			}
		}
	}

	return cols, args, nil
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// classify maps a storage engine error into the store's error taxonomy.
func classify(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Ping verifies the store's database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}
