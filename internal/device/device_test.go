package device

import (
	"context"
	"errors"
	"testing"
)

func TestDeviceAddParam(t *testing.T) {
	d, err := NewDevice("Switch", KindSwitch, nil)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	power := NewPowerParam(false)
	if err := d.AddParam(power); err != nil {
		t.Fatalf("AddParam() error = %v", err)
	}
	if power.Owner() != d {
		t.Error("Owner() did not return the device")
	}

	t.Run("duplicate name", func(t *testing.T) {
		err := d.AddParam(NewPowerParam(true))
		if !errors.Is(err, ErrDuplicateName) {
			t.Errorf("AddParam() error = %v, want ErrDuplicateName", err)
		}
		if len(d.Params()) != 1 {
			t.Errorf("Params() len = %d, want 1", len(d.Params()))
		}
	})

	t.Run("owned by another device", func(t *testing.T) {
		other, _ := NewDevice("Other", KindSwitch, nil)
		err := other.AddParam(power)
		if !errors.Is(err, ErrParamOwned) {
			t.Errorf("AddParam() error = %v, want ErrParamOwned", err)
		}
		if power.Owner() != d {
			t.Error("ownership changed after failed AddParam")
		}
	})
}

func TestDeviceAssignPrimary(t *testing.T) {
	d, _ := NewDevice("Switch", KindSwitch, nil)
	other, _ := NewDevice("Other", KindSwitch, nil)
	power := NewPowerParam(false)
	foreign := NewPowerParam(false)
	if err := d.AddParam(power); err != nil {
		t.Fatalf("AddParam() error = %v", err)
	}
	if err := other.AddParam(foreign); err != nil {
		t.Fatalf("AddParam() error = %v", err)
	}

	if err := d.AssignPrimary(foreign); !errors.Is(err, ErrNotOwned) {
		t.Errorf("AssignPrimary(foreign) error = %v, want ErrNotOwned", err)
	}
	if err := d.AssignPrimary(NewPowerParam(true)); !errors.Is(err, ErrNotOwned) {
		t.Errorf("AssignPrimary(unowned) error = %v, want ErrNotOwned", err)
	}
	if d.Primary() != nil {
		t.Error("Primary() set after failed assignment")
	}

	if err := d.AssignPrimary(power); err != nil {
		t.Fatalf("AssignPrimary() error = %v", err)
	}
	if !power.IsPrimary() {
		t.Error("IsPrimary() = false, want true")
	}
	if foreign.IsPrimary() {
		t.Error("foreign IsPrimary() = true, want false")
	}
}

func TestDeviceLookups(t *testing.T) {
	d := newSwitch(t, "Switch", nil)

	if _, err := d.Param("Brightness"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Param(missing) error = %v, want ErrNotFound", err)
	}
	p, err := d.ParamByType(ParamTypePower)
	if err != nil {
		t.Fatalf("ParamByType(power) error = %v", err)
	}
	if p.Name() != ParamPower {
		t.Errorf("ParamByType(power) = %q, want %q", p.Name(), ParamPower)
	}
	if _, err := d.ParamByType(ParamTypeOther); !errors.Is(err, ErrNotFound) {
		t.Errorf("ParamByType(other) error = %v, want ErrNotFound", err)
	}

	names := []string{}
	for _, p := range d.Params() {
		names = append(names, p.Name())
	}
	if len(names) != 2 || names[0] != ParamName || names[1] != ParamPower {
		t.Errorf("Params() order = %v, want [Name Power]", names)
	}
}

func TestDeviceHandleWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("nil handler rejects", func(t *testing.T) {
		d, _ := NewDevice("Plain", KindOther, nil)
		p := NewPowerParam(false)
		_ = d.AddParam(p)
		if _, err := d.HandleWrite(ctx, p, Bool(true), SourceCloud); !errors.Is(err, ErrRejected) {
			t.Errorf("HandleWrite() error = %v, want ErrRejected", err)
		}
	})

	t.Run("foreign target", func(t *testing.T) {
		foreign := NewPowerParam(false)
		other, _ := NewDevice("Other", KindOther, nil)
		_ = other.AddParam(foreign)

		h := WriteHandlerFunc(func(_ context.Context, _ *Device, _ *Param, v Value, _ Source) (Update, error) {
			return Update{Param: foreign, Value: v}, nil
		})
		d, _ := NewDevice("Bad", KindOther, h)
		p := NewPowerParam(false)
		_ = d.AddParam(p)

		if _, err := d.HandleWrite(ctx, p, Bool(true), SourceCloud); !errors.Is(err, ErrNotOwned) {
			t.Errorf("HandleWrite() error = %v, want ErrNotOwned", err)
		}
	})

	t.Run("wrong update type", func(t *testing.T) {
		h := WriteHandlerFunc(func(_ context.Context, _ *Device, p *Param, _ Value, _ Source) (Update, error) {
			return Update{Param: p, Value: String("on")}, nil
		})
		d, _ := NewDevice("Bad", KindOther, h)
		p := NewPowerParam(false)
		_ = d.AddParam(p)

		if _, err := d.HandleWrite(ctx, p, Bool(true), SourceCloud); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("HandleWrite() error = %v, want ErrTypeMismatch", err)
		}
	})

	t.Run("param of another device", func(t *testing.T) {
		d := newSwitch(t, "A", nil)
		other := newSwitch(t, "B", nil)
		p, _ := other.Param(ParamPower)
		if _, err := d.HandleWrite(ctx, p, Bool(true), SourceCloud); !errors.Is(err, ErrNotOwned) {
			t.Errorf("HandleWrite() error = %v, want ErrNotOwned", err)
		}
	})
}

func TestParseSource(t *testing.T) {
	for _, s := range []string{"cloud", "local", "schedule", "scene", "init"} {
		got, err := ParseSource(s)
		if err != nil {
			t.Errorf("ParseSource(%q) error = %v", s, err)
		}
		if got.String() != s {
			t.Errorf("ParseSource(%q) = %q", s, got)
		}
	}
	if _, err := ParseSource("bluetooth"); err == nil {
		t.Error("ParseSource(bluetooth) expected error")
	}
}
