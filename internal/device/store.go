package device

import (
	"context"
	"time"
)

// StoredValue is a persisted parameter value.
type StoredValue struct {
	Device    string
	Param     string
	Value     Value
	UpdatedAt time.Time
}

// ParamStore persists the latest value of persisted parameters so they
// survive restarts.
//
// Implementations must be thread-safe and use UTC timestamps.
type ParamStore interface {
	// SaveParam stores v as the latest value of device/param, replacing
	// any previous one.
	SaveParam(ctx context.Context, deviceName, paramName string, v Value) error

	// LoadParams returns every stored value ordered by device then param.
	LoadParams(ctx context.Context) ([]StoredValue, error)
}

// HistoryEntry is a single reported parameter change.
//
// History provides a local audit trail of applied writes even when the
// time-series database is unavailable.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// RequestID links the entry to the write request that produced it.
	RequestID string `json:"request_id"`

	Device string `json:"device"`
	Param  string `json:"param"`
	Value  Value  `json:"value"`

	// Source identifies where the write came from (cloud, local, schedule, scene, init).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves parameter change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// RecordChange records a reported parameter change.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - r: The report to persist
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	RecordChange(ctx context.Context, r Report) error

	// GetHistory returns recent changes of one parameter.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceName: Device name
	//   - paramName: Parameter name
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []HistoryEntry: Ordered newest-first history entries (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	GetHistory(ctx context.Context, deviceName, paramName string, limit int) ([]HistoryEntry, error)
}

// HistoryReporter records every report in a HistoryRepository.
type HistoryReporter struct {
	repo HistoryRepository
}

// NewHistoryReporter creates a reporter writing to repo.
func NewHistoryReporter(repo HistoryRepository) *HistoryReporter {
	return &HistoryReporter{repo: repo}
}

// Report implements Reporter.
func (h *HistoryReporter) Report(ctx context.Context, r Report) error {
	return h.repo.RecordChange(ctx, r)
}
