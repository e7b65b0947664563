// Package analytics emits product events to PostHog. Delivery is best
// effort: an empty API key yields a no-op client and enqueue failures are
// logged, never surfaced to the request that triggered them.
package analytics

import (
	"strings"

	"github.com/posthog/posthog-go"
	"github.com/sirupsen/logrus"
)

// Client wraps the PostHog client behind the degrade-silently policy.
type Client struct {
	ph  posthog.Client
	log *logrus.Logger
}

// New builds an analytics client. An empty or whitespace API key yields a
// disabled client whose methods are all no-ops.
func New(apiKey, host string, log *logrus.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		log.Info("analytics disabled, no API key configured")
		return &Client{log: log}, nil
	}
	ph, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: host})
	if err != nil {
		return nil, err
	}
	return &Client{ph: ph, log: log}, nil
}

// Enabled reports whether events actually leave the process.
func (c *Client) Enabled() bool {
	return c != nil && c.ph != nil
}

// PostHog exposes the underlying client for feature-flag evaluation.
// Returns nil when disabled.
func (c *Client) PostHog() posthog.Client {
	if c == nil {
		return nil
	}
	return c.ph
}

// Capture enqueues an event for the subject. Failures are logged only.
func (c *Client) Capture(distinctID, event string, properties map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	props := posthog.NewProperties()
	for k, v := range properties {
		props = props.Set(k, v)
	}
	err := c.ph.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	})
	if err != nil {
		c.log.WithError(err).WithField("event", event).Warn("analytics capture failed")
	}
}

// Close flushes buffered events. Safe on a disabled client.
func (c *Client) Close() {
	if !c.Enabled() {
		return
	}
	if err := c.ph.Close(); err != nil {
		c.log.WithError(err).Warn("analytics close failed")
	}
}
