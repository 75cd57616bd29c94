package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the stage a write request reached.
type State string

// Write request states. A request ends in Reported or Rejected, or in
// Applied when the reporter failed.
const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateApplied   State = "applied"
	StateReported  State = "reported"
	StateRejected  State = "rejected"
)

// WriteRequest is an inbound command to change a parameter value.
type WriteRequest struct {
	ID     uuid.UUID
	Device string
	Param  string
	Value  Value
	Source Source
}

// NewWriteRequest creates a request with a fresh ID.
func NewWriteRequest(deviceName, paramName string, v Value, src Source) WriteRequest {
	return WriteRequest{
		ID:     uuid.New(),
		Device: deviceName,
		Param:  paramName,
		Value:  v,
		Source: src,
	}
}

// WriteResult describes the outcome of a dispatched request.
// Param and Value name the parameter actually written, which may differ
// from the request's parameter when the handler derives a value.
type WriteResult struct {
	RequestID uuid.UUID `json:"request_id"`
	State     State     `json:"state"`
	Device    string    `json:"device"`
	Param     string    `json:"param"`
	Value     Value     `json:"value"`
}

// Dispatcher validates, applies and reports write requests against a
// sealed Node.
//
// Writes to the same parameter are serialised: a write holds the
// parameter's lock from validation until its report completes. A handler
// that targets another parameter also holds that parameter's lock, so
// handlers must not form targeting cycles.
type Dispatcher struct {
	node     *Node
	reporter Reporter
	store    ParamStore
	logger   Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher for node. A nil reporter discards
// reports.
func NewDispatcher(node *Node, reporter Reporter) *Dispatcher {
	if reporter == nil {
		reporter = noopReporter{}
	}
	return &Dispatcher{
		node:     node,
		reporter: reporter,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetStore enables persistence of applied values for persisted parameters.
func (d *Dispatcher) SetStore(store ParamStore) {
	d.store = store
}

// Node returns the node the dispatcher writes to.
func (d *Dispatcher) Node() *Node {
	return d.node
}

// Dispatch runs a write request to completion.
//
// Errors:
//   - ErrNotReady: the node is not sealed yet
//   - ErrNotFound: unknown device or parameter
//   - ErrTypeMismatch: value tag differs from the parameter's
//   - ErrRejected (incl. ErrReadOnly): refused by validation or handler
//   - ErrReportFailed: value applied, but reporting failed
//
// On every error except ErrReportFailed nothing was mutated and nothing
// was reported.
func (d *Dispatcher) Dispatch(ctx context.Context, req WriteRequest) (WriteResult, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	res := WriteResult{
		RequestID: req.ID,
		State:     StateReceived,
		Device:    req.Device,
		Param:     req.Param,
	}

	if !d.node.Sealed() {
		return d.reject(res, req, ErrNotReady)
	}

	dev, err := d.node.Device(req.Device)
	if err != nil {
		return d.reject(res, req, err)
	}
	p, err := dev.Param(req.Param)
	if err != nil {
		return d.reject(res, req, err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.ReadOnly() {
		return d.reject(res, req, fmt.Errorf("%w: %s/%s", ErrReadOnly, dev.Name(), p.Name()))
	}
	if req.Value.Type() != p.ValueType() {
		return d.reject(res, req, fmt.Errorf("%w: %s/%s is %s, got %s",
			ErrTypeMismatch, dev.Name(), p.Name(), p.ValueType(), req.Value.Type()))
	}
	res.State = StateValidated

	upd, err := dev.HandleWrite(ctx, p, req.Value, req.Source)
	if err != nil {
		return d.reject(res, req, err)
	}

	target := upd.Param
	if target != p {
		target.writeMu.Lock()
		defer target.writeMu.Unlock()
		if target.ReadOnly() {
			return d.reject(res, req, fmt.Errorf("%w: %s/%s", ErrReadOnly, dev.Name(), target.Name()))
		}
	}

	if err := target.SetValue(upd.Value); err != nil {
		return d.reject(res, req, err)
	}
	res.State = StateApplied
	res.Param = target.Name()
	res.Value = upd.Value

	d.logger.Debug("parameter applied",
		"request_id", req.ID,
		"device", dev.Name(),
		"param", target.Name(),
		"value", upd.Value,
		"source", req.Source,
	)

	if d.store != nil && target.Persisted() && req.Source != SourceInit {
		if err := d.store.SaveParam(ctx, dev.Name(), target.Name(), upd.Value); err != nil {
			d.logger.Error("persisting parameter failed",
				"device", dev.Name(),
				"param", target.Name(),
				"error", err,
			)
		}
	}

	report := Report{
		RequestID: req.ID,
		Device:    dev.Name(),
		Param:     target.Name(),
		Value:     upd.Value,
		Source:    req.Source,
		Time:      d.now().UTC(),
	}
	if err := d.reporter.Report(ctx, report); err != nil {
		d.logger.Error("reporting parameter failed",
			"request_id", req.ID,
			"device", dev.Name(),
			"param", target.Name(),
			"error", err,
		)
		return res, fmt.Errorf("%w: %w", ErrReportFailed, err)
	}

	res.State = StateReported
	return res, nil
}

// reject finalises a request that mutated nothing.
func (d *Dispatcher) reject(res WriteResult, req WriteRequest, err error) (WriteResult, error) {
	res.State = StateRejected
	d.logger.Warn("write rejected",
		"request_id", req.ID,
		"device", req.Device,
		"param", req.Param,
		"source", req.Source,
		"error", err,
	)
	return res, err
}

// Restore replays persisted values as SourceInit writes.
// Stale entries (unknown parameter, changed type, read-only) and rows the
// store could not decode are logged and skipped; a failing reporter does
// not stop the replay.
//
// Returns:
//   - int: Number of values applied
//   - error: nil on success, otherwise the store's load error
func (d *Dispatcher) Restore(ctx context.Context, store ParamStore) (int, error) {
	stored, err := store.LoadParams(ctx)
	switch {
	case errors.Is(err, ErrCorruptValue):
		d.logger.Warn("skipping unreadable persisted parameters", "error", err)
	case err != nil:
		return 0, fmt.Errorf("loading persisted parameters: %w", err)
	}

	restored := 0
	for _, sv := range stored {
		_, err := d.Dispatch(ctx, NewWriteRequest(sv.Device, sv.Param, sv.Value, SourceInit))
		switch {
		case err == nil, errors.Is(err, ErrReportFailed):
			restored++
		case errors.Is(err, ErrNotReady):
			return restored, err
		default:
			d.logger.Warn("skipping persisted parameter",
				"device", sv.Device,
				"param", sv.Param,
				"error", err,
			)
		}
	}

	d.logger.Info("persisted parameters restored", "count", restored, "stored", len(stored))
	return restored, nil
}
