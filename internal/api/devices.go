package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/switchnode/internal/device"
)

// headerWriteSource lets a LAN scheduler or scene controller tag its writes.
const headerWriteSource = "X-Write-Source"

// maxNameLen bounds device and parameter names taken from the URL.
const maxNameLen = 100

// WriteParamsResponse is the body returned by PUT .../params.
type WriteParamsResponse struct {
	Results []device.WriteResult `json:"results"`
}

// handleGetNode returns the node description with current values.
func (s *Server) handleGetNode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Node().Config())
}

// handleGetDevice returns one device with its parameters.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "device")
	if name == "" || len(name) > maxNameLen {
		writeBadRequest(w, "invalid device name")
		return
	}

	d, err := s.dispatcher.Node().Device(name)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Config())
}

// handleWriteParams applies {"Param": value, ...} to one device.
//
// Every entry is resolved and type-checked before the first write, so a
// bad name or type changes nothing. Entries are then dispatched in name
// order; if one is rejected the earlier ones stay applied and the error
// status is returned. A report failure still counts as applied.
func (s *Server) handleWriteParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "device")
	if name == "" || len(name) > maxNameLen {
		writeBadRequest(w, "invalid device name")
		return
	}

	src := device.SourceLocalLAN
	if h := r.Header.Get(headerWriteSource); h != "" {
		parsed, err := parseLANSource(h)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		src = parsed
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "request body too large or unreadable")
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(raw) == 0 {
		writeBadRequest(w, "no parameters in body")
		return
	}

	d, err := s.dispatcher.Node().Device(name)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	names := make([]string, 0, len(raw))
	for p := range raw {
		names = append(names, p)
	}
	slices.Sort(names)

	reqs := make([]device.WriteRequest, 0, len(names))
	for _, pn := range names {
		p, err := d.Param(pn)
		if err != nil {
			writeDeviceError(w, err)
			return
		}
		v, err := device.Coerce(p.ValueType(), raw[pn])
		if err != nil {
			writeDeviceError(w, fmt.Errorf("%s/%s: %w", name, pn, err))
			return
		}
		reqs = append(reqs, device.NewWriteRequest(name, pn, v, src))
	}

	resp := WriteParamsResponse{Results: make([]device.WriteResult, 0, len(reqs))}
	for _, req := range reqs {
		res, err := s.dispatcher.Dispatch(ctx, req)
		if err != nil && !errors.Is(err, device.ErrReportFailed) {
			writeDeviceError(w, err)
			return
		}
		resp.Results = append(resp.Results, res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseLANSource accepts the sources a LAN client may claim.
func parseLANSource(h string) (device.Source, error) {
	src, err := device.ParseSource(h)
	if err != nil {
		return "", err
	}
	switch src {
	case device.SourceLocalLAN, device.SourceSchedule, device.SourceScene:
		return src, nil
	default:
		return "", fmt.Errorf("write source %q not allowed over the local API", h)
	}
}
