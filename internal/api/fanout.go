package api

import (
	"context"
	"net/http"

	"github.com/nerrad567/servo-switch/internal/audit"
	"github.com/nerrad567/servo-switch/internal/device"
)

// sourceAPI marks changes requested over HTTP.
const sourceAPI = "api"

// publishChanSize bounds state updates waiting for the MQTT worker.
const publishChanSize = 64

// stateUpdate is one queued MQTT publish: a power state, or an
// environment reading when env is set.
type stateUpdate struct {
	env             bool
	value           int
	source          string
	temperatureC    float64
	humidityPercent float64
}

// previousPower reads the current state for the audit record. It only
// touches the hardware when history is enabled.
func (s *Server) previousPower(ctx context.Context) *int {
	if s.auditCh == nil {
		return nil
	}

	p, err := s.sw.GetPower(ctx)
	if err != nil {
		s.logger.Warn("reading previous power state failed", "error", err, "request_id", requestID(ctx))
		return nil
	}
	v := int(p)
	return &v
}

// recordPowerChange sends a successful change to MQTT, InfluxDB and the
// switch history. None of these can fail the request.
func (s *Server) recordPowerChange(r *http.Request, p device.PowerState, previous *int) {
	value := int(p)

	s.queuePublish(stateUpdate{value: value, source: sourceAPI})

	if s.telemetry != nil {
		s.telemetry.WritePowerState(value, sourceAPI)
	}

	s.auditLog(&audit.SwitchEvent{
		Action:     audit.ActionSet,
		Value:      value,
		Previous:   previous,
		Source:     sourceAPI,
		RemoteAddr: r.RemoteAddr,
		RequestID:  requestID(r.Context()),
	})
}

// recordEnv sends a valid environment reading to MQTT and InfluxDB.
func (s *Server) recordEnv(temperatureC, humidityPercent float64) {
	s.queuePublish(stateUpdate{env: true, temperatureC: temperatureC, humidityPercent: humidityPercent})

	if s.telemetry != nil {
		s.telemetry.WriteEnvSample(temperatureC, humidityPercent)
	}
}

// queuePublish hands u to the MQTT worker. Updates are published in the
// order they are queued, so the retained power topic ends on the last
// state written to the servos.
func (s *Server) queuePublish(u stateUpdate) {
	if s.publishCh == nil {
		return
	}

	select {
	case s.publishCh <- u:
	default:
		s.logger.Warn("publish queue full, dropping state update", "env", u.env, "value", u.value)
	}
}

// publishState sends one update. Failures are logged only.
func (s *Server) publishState(u stateUpdate) {
	if u.env {
		if err := s.mqtt.PublishEnv(u.temperatureC, u.humidityPercent); err != nil {
			s.logger.Warn("publishing environment failed", "error", err)
		}
		return
	}
	if err := s.mqtt.PublishPower(u.value, u.source); err != nil {
		s.logger.Warn("publishing power state failed", "value", u.value, "error", err)
	}
}

// drain hands queued items to handle one at a time until ctx is
// cancelled, then handles whatever is still queued.
func drain[T any](ctx context.Context, ch <-chan T, handle func(T)) {
	for {
		select {
		case item := <-ch:
			handle(item)
		case <-ctx.Done():
			for {
				select {
				case item := <-ch:
					handle(item)
				default:
					return
				}
			}
		}
	}
}
