package mqtt

import (
	"encoding/json"
	"time"
)

// StatusPayload is published on the system status topic.
type StatusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// PowerPayload is published on the power state topic.
type PowerPayload struct {
	Value     int    `json:"value"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// EnvPayload is published on the environment topic.
type EnvPayload struct {
	Valid           bool    `json:"valid"`
	TemperatureC    float64 `json:"temperature_c"`
	HumidityPercent float64 `json:"humidity_percent"`
	Timestamp       string  `json:"timestamp"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// mustMarshal encodes payload structs, which only hold strings and numbers.
func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("mqtt: marshalling payload: " + err.Error())
	}
	return b
}

func buildStatusPayload(clientID, status, reason string, at time.Time) []byte {
	return mustMarshal(StatusPayload{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: formatTimestamp(at),
	})
}

// BuildPowerPayload encodes a power state message.
func BuildPowerPayload(value int, source string, at time.Time) []byte {
	return mustMarshal(PowerPayload{
		Value:     value,
		Source:    source,
		Timestamp: formatTimestamp(at),
	})
}

// BuildEnvPayload encodes an environment reading message.
func BuildEnvPayload(temperatureC, humidityPercent float64, at time.Time) []byte {
	return mustMarshal(EnvPayload{
		Valid:           true,
		TemperatureC:    temperatureC,
		HumidityPercent: humidityPercent,
		Timestamp:       formatTimestamp(at),
	})
}
