// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"farmer-assistant-workers/internal/common/config"
	"farmer-assistant-workers/internal/common/errors"
)

// Client owns the gateway connection shared by every job worker.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig bounds retries of transient gateway failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// ConfigFrom maps the camunda config section onto client settings.
func ConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.RequestTimeout),
		RetryConfig:            DefaultRetryConfig,
	}
}

// NewClientWithConfig dials the gateway and confirms the topology answers
// before returning.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: cfg}
	if _, err := c.Topology(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe gateway at %s: %w", cfg.GatewayAddress, err)
	}
	return c, nil
}

// GetClient returns the raw Zeebe client for opening job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Retry runs fn with exponential backoff. Only transient gateway errors are
// retried; the final error is mapped to a StandardError.
func Retry[T any](ctx context.Context, rc *RetryConfig, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryableZeebeError(err) || attempt >= rc.MaxRetries {
			return zero, mapZeebeError(err, operation, attempt)
		}

		delay := rc.BaseDelay * time.Duration(1<<attempt)
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, mapZeebeError(ctx.Err(), operation, attempt)
		}
	}
}

// Topology is the subset of the gateway topology reported on /ready.
type Topology struct {
	Brokers           int    `json:"brokers"`
	Partitions        int32  `json:"partitions"`
	ReplicationFactor int32  `json:"replicationFactor"`
	GatewayVersion    string `json:"gatewayVersion"`
}

// Topology asks the gateway for its cluster layout, retrying transient failures.
func (c *Client) Topology(ctx context.Context) (*Topology, error) {
	resp, err := Retry(ctx, c.config.RetryConfig, "topology", func(ctx context.Context) (*pb.TopologyResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
		defer cancel()
		return c.client.NewTopologyCommand().Send(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Topology{
		Brokers:           len(resp.GetBrokers()),
		Partitions:        resp.GetPartitionsCount(),
		ReplicationFactor: resp.GetReplicationFactor(),
		GatewayVersion:    resp.GetGatewayVersion(),
	}, nil
}

// HealthCheck is a single topology request with no retries.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return mapZeebeError(err, "health-check", 0)
	}
	return nil
}

func isRetryableZeebeError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"connection refused", "connection reset", "broken pipe", "unavailable", "deadline exceeded"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) error {
	wrapped := fmt.Errorf("zeebe %s failed", operation)
	if attempt > 0 {
		wrapped = fmt.Errorf("zeebe %s failed after %d attempts", operation, attempt+1)
	}

	code := codes.Unknown
	if st, ok := status.FromError(err); ok {
		code = st.Code()
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded) || code == codes.DeadlineExceeded:
		return errors.NewTimeoutError("zeebe", fmt.Errorf("%v: %w", wrapped, err))
	case code == codes.NotFound:
		return errors.NewResourceNotFoundError("zeebe", fmt.Sprintf("%v: %v", wrapped, err))
	default:
		return errors.NewExternalServiceError("zeebe", fmt.Errorf("%v: %w", wrapped, err))
	}
}
