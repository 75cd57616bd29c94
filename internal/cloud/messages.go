package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/switchnode/internal/device"
)

// ParamsMessage is the body of params/local and params/remote messages:
// device name to parameter name to value.
//
//	{"Switch": {"Power": true}, "Dispense": {"Value": 512}}
type ParamsMessage map[string]map[string]any

// paramWrite is one flattened entry of a ParamsMessage.
type paramWrite struct {
	Device string
	Param  string
	Raw    any
}

// encodeReport renders a single report as a ParamsMessage.
func encodeReport(r device.Report) ([]byte, error) {
	data, err := json.Marshal(map[string]map[string]device.Value{
		r.Device: {r.Param: r.Value},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return data, nil
}

// decodeParams parses a params/remote payload. Numbers are kept as
// json.Number so integer parameters are not rounded through float64.
// Entries are returned sorted by device then parameter.
func decodeParams(payload []byte) ([]paramWrite, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var msg map[string]json.RawMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	var writes []paramWrite
	for dev, raw := range msg {
		params := make(map[string]any)
		pd := json.NewDecoder(bytes.NewReader(raw))
		pd.UseNumber()
		if err := pd.Decode(&params); err != nil {
			return nil, fmt.Errorf("%w: device %q: %w", ErrInvalidPayload, dev, err)
		}
		for name, v := range params {
			writes = append(writes, paramWrite{Device: dev, Param: name, Raw: v})
		}
	}

	slices.SortFunc(writes, func(a, b paramWrite) int {
		if c := strings.Compare(a.Device, b.Device); c != 0 {
			return c
		}
		return strings.Compare(a.Param, b.Param)
	})
	return writes, nil
}
