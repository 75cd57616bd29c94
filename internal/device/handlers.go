package device

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Default range of DerivedValueHandler.
const (
	DefaultDerivedMin = 100
	DefaultDerivedMax = 999
)

// HardwareDriver drives the physical actuator behind a switch.
type HardwareDriver interface {
	SetState(on bool) error
}

// PowerHandler accepts boolean writes to a device's power parameter and
// stores them verbatim, driving the optional hardware on the way.
// Writes to any other parameter are rejected unless they restore a
// persisted value (SourceInit).
type PowerHandler struct {
	driver HardwareDriver
	logger Logger
}

// NewPowerHandler creates a power handler. driver may be nil for switches
// without an actuator.
func NewPowerHandler(driver HardwareDriver) *PowerHandler {
	return &PowerHandler{driver: driver, logger: noopLogger{}}
}

// SetLogger sets the logger for the handler.
func (h *PowerHandler) SetLogger(logger Logger) {
	h.logger = logger
}

// HandleWrite implements WriteHandler.
func (h *PowerHandler) HandleWrite(_ context.Context, d *Device, p *Param, v Value, src Source) (Update, error) {
	if p.Type() != ParamTypePower {
		if src == SourceInit {
			return Update{Param: p, Value: v}, nil
		}
		return Update{}, fmt.Errorf("%w: %q only accepts writes to its power parameter", ErrRejected, d.Name())
	}
	if v.Type() != TypeBool {
		return Update{}, fmt.Errorf("%w: power expects bool, got %s", ErrTypeMismatch, v.Type())
	}

	h.logger.Info("received write request",
		"device", d.Name(),
		"param", p.Name(),
		"value", v.AsBool(),
		"source", src,
	)

	// Best-effort: a failing actuator does not block the state change.
	if h.driver != nil {
		if err := h.driver.SetState(v.AsBool()); err != nil {
			h.logger.Error("applying hardware state failed",
				"device", d.Name(),
				"state", v.AsBool(),
				"error", err,
			)
		}
	}

	return Update{Param: p, Value: v}, nil
}

// DerivedValueHandler treats any write as a trigger and stores a fresh
// integer drawn uniformly from [min, max] into the device's parameter of
// type other. The written value is ignored, except for SourceInit writes,
// which restore a persisted value verbatim into the written parameter.
type DerivedValueHandler struct {
	min, max int64

	mu  sync.Mutex
	rng *rand.Rand

	logger Logger
}

// NewDerivedValueHandler creates a handler drawing from rng.
// Returns ErrInvalidRange if min > max.
func NewDerivedValueHandler(rng *rand.Rand, minValue, maxValue int64) (*DerivedValueHandler, error) {
	if minValue > maxValue {
		return nil, fmt.Errorf("%w: min %d > max %d", ErrInvalidRange, minValue, maxValue)
	}
	if rng == nil {
		return nil, fmt.Errorf("derived value handler: random source is required")
	}
	return &DerivedValueHandler{
		min:    minValue,
		max:    maxValue,
		rng:    rng,
		logger: noopLogger{},
	}, nil
}

// NewSeededRand returns a PCG source seeded once from wall-clock time.
func NewSeededRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano()) //nolint:gosec // non-negative wall clock
	return rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
}

// SetLogger sets the logger for the handler.
func (h *DerivedValueHandler) SetLogger(logger Logger) {
	h.logger = logger
}

// Range returns the closed range values are drawn from.
func (h *DerivedValueHandler) Range() (minValue, maxValue int64) {
	return h.min, h.max
}

// Next draws the next value.
//
// The width is computed unsigned so ranges wider than MaxInt64 do not
// overflow; the full int64 range takes a raw 64-bit draw.
func (h *DerivedValueHandler) Next() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	width := uint64(h.max) - uint64(h.min)
	if width == math.MaxUint64 {
		return int64(h.rng.Uint64()) //nolint:gosec // every bit pattern is in range
	}
	return h.min + int64(h.rng.Uint64N(width+1)) //nolint:gosec // sum stays within [min, max]
}

// HandleWrite implements WriteHandler.
func (h *DerivedValueHandler) HandleWrite(_ context.Context, d *Device, p *Param, v Value, src Source) (Update, error) {
	if src == SourceInit {
		return Update{Param: p, Value: v}, nil
	}

	target, err := d.ParamByType(ParamTypeOther)
	if err != nil {
		return Update{}, err
	}

	h.logger.Info("received write request",
		"device", d.Name(),
		"param", p.Name(),
		"source", src,
	)

	n := h.Next()
	h.logger.Debug("derived value generated", "device", d.Name(), "param", target.Name(), "value", n)
	return Update{Param: target, Value: Int(n)}, nil
}
