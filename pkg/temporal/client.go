package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
)

// Config holds Temporal client configuration
type Config struct {
	HostPort  string
	Namespace string
	Identity  string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HostPort:  "localhost:7233",
		Namespace: "default",
		Identity:  "vas-service",
	}
}

// Signals understood by the order fulfillment workflow
var Signals = struct {
	VASCompleted string
}{
	VASCompleted: "vasCompleted",
}

// OrderFulfillmentWorkflowID returns the workflow ID of an order's fulfillment run
func OrderFulfillmentWorkflowID(orderNo string) string {
	return "order-fulfillment-" + orderNo
}

// Client wraps the Temporal SDK client
type Client struct {
	client client.Client
}

// NewClient dials the Temporal frontend
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	c, err := client.DialContext(ctx, client.Options{
		HostPort:  config.HostPort,
		Namespace: config.Namespace,
		Identity:  config.Identity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return &Client{client: c}, nil
}

// NewClientFrom adopts an existing SDK client
func NewClientFrom(c client.Client) *Client {
	return &Client{client: c}
}

// SignalWorkflow sends a signal to a running workflow
func (c *Client) SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error {
	return c.client.SignalWorkflow(ctx, workflowID, runID, signalName, arg)
}

// Close closes the client connection
func (c *Client) Close() {
	c.client.Close()
}
