package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timestampLayout is fixed width so stored timestamps sort lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteParamStore implements ParamStore using SQLite.
//
// Values are stored as JSON scalars next to their type tag in the
// param_values table.
type SQLiteParamStore struct {
	db *sql.DB
}

// NewSQLiteParamStore creates a new SQLite parameter store.
func NewSQLiteParamStore(db *sql.DB) *SQLiteParamStore {
	return &SQLiteParamStore{db: db}
}

// SaveParam upserts the latest value of a parameter.
func (s *SQLiteParamStore) SaveParam(ctx context.Context, deviceName, paramName string, v Value) error {
	if deviceName == "" || paramName == "" {
		return fmt.Errorf("device and param names are required")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling value: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO param_values (device, param, value_type, value, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (device, param) DO UPDATE SET
		   value_type = excluded.value_type,
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		deviceName,
		paramName,
		string(v.Type()),
		string(data),
		time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting param value: %w", err)
	}
	return nil
}

// LoadParams returns all stored values ordered by device then param.
//
// Rows whose value or timestamp cannot be decoded are skipped; the readable
// rows come back together with an error wrapping ErrCorruptValue that names
// each skipped row.
func (s *SQLiteParamStore) LoadParams(ctx context.Context) ([]StoredValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT device, param, value_type, value, updated_at
		 FROM param_values
		 ORDER BY device, param`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying param values: %w", err)
	}
	defer rows.Close()

	var out []StoredValue
	var corrupt []error
	for rows.Next() {
		var sv StoredValue
		var valueType, data, updatedAt string
		if err := rows.Scan(&sv.Device, &sv.Param, &valueType, &data, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning param value: %w", err)
		}

		if sv.Value, err = parseStoredValue(ValueType(valueType), data); err != nil {
			corrupt = append(corrupt, fmt.Errorf("%w: %s/%s: %w", ErrCorruptValue, sv.Device, sv.Param, err))
			continue
		}
		if sv.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			corrupt = append(corrupt, fmt.Errorf("%w: %s/%s: %w", ErrCorruptValue, sv.Device, sv.Param, err))
			continue
		}
		out = append(out, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating param values: %w", err)
	}
	return out, errors.Join(corrupt...)
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteHistoryRepository: Repository instance ready for use
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// RecordChange inserts a history row for a report.
func (r *SQLiteHistoryRepository) RecordChange(ctx context.Context, rep Report) error {
	if rep.Device == "" || rep.Param == "" {
		return fmt.Errorf("device and param names are required")
	}
	source := string(rep.Source)
	if source == "" {
		source = string(SourceLocalLAN)
	}
	ts := rep.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	data, err := json.Marshal(rep.Value)
	if err != nil {
		return fmt.Errorf("marshalling value: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO param_history (request_id, device, param, value_type, value, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.RequestID.String(),
		rep.Device,
		rep.Param,
		string(rep.Value.Type()),
		string(data),
		source,
		ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting param history: %w", err)
	}
	return nil
}

// GetHistory returns recent history entries of a parameter, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceName: Device name
//   - paramName: Parameter name
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []HistoryEntry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, deviceName, paramName string, limit int) ([]HistoryEntry, error) {
	if deviceName == "" || paramName == "" {
		return nil, fmt.Errorf("device and param names are required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, device, param, value_type, value, source, created_at
		 FROM param_history
		 WHERE device = ? AND param = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceName,
		paramName,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying param history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var entry HistoryEntry
		var valueType, data, createdAt string

		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.Device, &entry.Param,
			&valueType, &data, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning param history: %w", err)
		}

		entry.Value, err = parseStoredValue(ValueType(valueType), data)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", entry.ID, err)
		}
		entry.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating param history: %w", err)
	}

	return entries, nil
}

// PruneHistory deletes history entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM param_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting param history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	timestamp, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02 15:04:05", value)
	if fallbackErr == nil {
		return fallback.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
}
