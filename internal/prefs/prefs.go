package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opentransit/regioncore/internal/infrastructure/database"
)

// Well-known preference keys for the rider profile survey.
const (
	KeyAge          = "age"
	KeyZipHome      = "zip_home"
	KeyZipWork      = "zip_work"
	KeyZipSchool    = "zip_school"
	KeyEmail        = "email"
	KeyGender       = "gender"
	KeyCycleFreq    = "cycle_freq"
	KeyEthnicity    = "ethnicity"
	KeyIncome       = "income"
	KeyRiderType    = "rider_type"
	KeyRiderHistory = "rider_history"
)

// ErrInvalidKey is returned when a preference key is empty.
var ErrInvalidKey = errors.New("prefs: invalid key")

// Repository persists preferences in SQLite.
type Repository struct {
	db *database.DB
}

// NewRepository creates a preferences repository over the given database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Get retrieves one preference value.
// Returns ("", false, nil) when the key has never been set.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes one preference, inserting or overwriting as needed.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at)
		 VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		 ON CONFLICT(key) DO UPDATE SET
		     value = excluded.value,
		     updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing preference %q: %w", key, err)
	}
	return nil
}

// SetAll writes a batch of preferences in one transaction, so a profile
// save is all-or-nothing.
func (r *Repository) SetAll(ctx context.Context, values map[string]string) error {
	for key := range values {
		if key == "" {
			return ErrInvalidKey
		}
	}
	if len(values) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning preferences transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	for key, value := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value, updated_at)
			 VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
			 ON CONFLICT(key) DO UPDATE SET
			     value = excluded.value,
			     updated_at = excluded.updated_at`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("writing preference %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preferences: %w", err)
	}
	return nil
}

// Delete removes one preference. Deleting an absent key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE key = ?`, key,
	)
	if err != nil {
		return fmt.Errorf("deleting preference %q: %w", key, err)
	}
	return nil
}

// All retrieves every stored preference as a key/value map.
func (r *Repository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM preferences ORDER BY key`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("decoding preference: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	return values, nil
}
