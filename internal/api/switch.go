package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/servo-switch/internal/device"
)

// errInvalidValue covers every unusable POST /api/switch body.
var errInvalidValue = errors.New("invalid switch value")

// switchResponse is the body of GET /api/switch.
type switchResponse struct {
	Success bool `json:"success"`
	Value   int  `json:"value"`
}

// handleGetSwitch returns the power state read back from the servos.
func (s *Server) handleGetSwitch(w http.ResponseWriter, r *http.Request) {
	p, err := s.sw.GetPower(r.Context())
	if err != nil {
		s.logger.Error("reading power state failed", "error", err, "request_id", requestID(r.Context()))
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, switchResponse{Success: true, Value: int(p)})
}

// handleSetSwitch drives the servos to the requested power state.
func (s *Server) handleSetSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := decodeSwitchRequest(r.Body)
	if err != nil {
		s.logger.Debug("switch request rejected", "error", err, "request_id", requestID(ctx))
		writeBadRequest(w)
		return
	}

	previous := s.previousPower(ctx)

	if err := s.sw.SetPower(ctx, p); err != nil {
		s.logger.Error("setting power state failed",
			"value", int(p),
			"error", err,
			"request_id", requestID(ctx),
		)
		writeInternalError(w)
		return
	}

	s.logger.Info("power state set", "value", int(p), "request_id", requestID(ctx))
	s.recordPowerChange(r, p, previous)

	writeJSON(w, http.StatusOK, resultResponse{Success: true})
}

// decodeSwitchRequest reads a JSON object with a "value" key.
func decodeSwitchRequest(body io.Reader) (device.PowerState, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("%w: reading body: %w", errInvalidValue, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 0, fmt.Errorf("%w: body is not a JSON object: %w", errInvalidValue, err)
	}

	value, ok := fields["value"]
	if !ok {
		return 0, fmt.Errorf("%w: missing value", errInvalidValue)
	}

	n, err := parseSwitchValue(value)
	if err != nil {
		return 0, err
	}

	p, err := device.ParsePowerState(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errInvalidValue, err)
	}
	return p, nil
}

// parseSwitchValue accepts a JSON integer literal or a string holding a
// base-10 integer with optional surrounding whitespace.
func parseSwitchValue(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: %w", errInvalidValue, err)
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", errInvalidValue, v)
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errInvalidValue, text)
	}
	return n, nil
}
