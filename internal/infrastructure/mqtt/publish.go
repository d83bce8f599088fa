package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// validatePublish checks publish arguments and connection state.
func (c *Client) validatePublish(topic string, payload []byte, qos byte) error {
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
	return nil
}

// Publish sends a message to the specified MQTT topic and waits for the
// broker's acknowledgment.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "devicelab/clients/pi1/version")
//   - payload: The message payload (JSON, max 1MB; empty deletes a retained value)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := c.validatePublish(topic, payload, qos); err != nil {
		return err
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

// PublishAsync sends a message without waiting for acknowledgment.
//
// Argument and connection errors are returned immediately. Delivery
// failures are reported to the logger (if set) from a background
// goroutine and are otherwise dropped.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool) error {
	if err := c.validatePublish(topic, payload, qos); err != nil {
		return err
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish not acknowledged", "topic", topic, "timeout", defaultPublishTimeout)
			}
			return
		}
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish failed", "topic", topic, "error", err)
			}
		}
	}()

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS
// without waiting for acknowledgment.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.PublishAsync(topic, payload, c.QoS(), true)
}

// QoS returns the configured default QoS level.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS) //nolint:gosec // validated to 0..2 by config
}
