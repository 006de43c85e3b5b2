package mqtt

import (
	"fmt"
	"time"
)

// maxPayloadSize bounds a single message (1MB).
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker acknowledgment.
// Retained messages are kept by the broker for later subscribers.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes a retained message with the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishPower publishes the current power state.
func (c *Client) PublishPower(value int, source string) error {
	return c.PublishRetained(Topics{}.PowerState(), BuildPowerPayload(value, source, time.Now()))
}

// PublishEnv publishes a valid environment reading.
func (c *Client) PublishEnv(temperatureC, humidityPercent float64) error {
	return c.PublishRetained(Topics{}.EnvState(), BuildEnvPayload(temperatureC, humidityPercent, time.Now()))
}
