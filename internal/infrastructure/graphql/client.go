// Package graphql implements the worksheet backend over GraphQL.
package graphql

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gql "github.com/machinebox/graphql"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/metrics"
	"github.com/wms-platform/vas-service/pkg/resilience"
	"github.com/wms-platform/vas-service/pkg/tracing"
)

const (
	breakerName    = "vas-backend"
	errorPrefix    = "graphql: "
	non200Response = "graphql: server returned a non-200 status code"
)

// Config holds the backend client configuration
type Config struct {
	Endpoint          string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default backend client configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint:          "http://localhost:4000/graphql",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 20,
		Burst:             5,
	}
}

// Client is a domain.Backend talking to the worksheet GraphQL API
type Client struct {
	gql     *gql.Client
	token   string
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	tracer  trace.Tracer
	logger  *logging.Logger
}

var _ domain.Backend = (*Client)(nil)

// NewClient creates a backend client. m may be nil.
func NewClient(config *Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	httpClient := &http.Client{Timeout: config.Timeout}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	breakerConfig := resilience.DefaultCircuitBreakerConfig(breakerName)
	breakerConfig.IsFailure = isTransportFailure
	breakerConfig.OnStateChange = func(name string, from, to gobreaker.State) {
		if m == nil {
			return
		}
		m.SetCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}

	return &Client{
		gql:     gql.NewClient(config.Endpoint, gql.WithHTTPClient(httpClient)),
		token:   config.Token,
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker(breakerConfig, logger.Logger),
		tracer:  otel.Tracer("vas-service/graphql"),
		logger:  logger.WithComponent("graphql-client"),
	}
}

// CheckHealth reports an error while the circuit breaker is open
func (c *Client) CheckHealth() error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: %s", resilience.ErrCircuitOpen, c.breaker.Name())
	}
	return nil
}

// FetchWorksheet loads the order header and its tasks
func (c *Client) FetchWorksheet(ctx context.Context, orderNo string) (*domain.Worksheet, error) {
	req := gql.NewRequest(worksheetQuery)
	req.Var("orderNo", orderNo)

	var resp worksheetResponse
	if err := c.run(ctx, "vasWorksheet", req, &resp); err != nil {
		return nil, err
	}
	if resp.VASWorksheet == nil {
		return nil, &domain.RemoteError{
			Operation: "vasWorksheet",
			Message:   fmt.Sprintf("order %s not found", orderNo),
		}
	}

	return &domain.Worksheet{
		OrderNo:   resp.VASWorksheet.OrderNo,
		OrderType: domain.OrderType(resp.VASWorksheet.OrderType),
		Status:    resp.VASWorksheet.Status,
		Tasks:     toDomainTasks(resp.VASWorksheet.Tasks),
	}, nil
}

// FetchCandidates lists every eligible inventory lot for the group
func (c *Client) FetchCandidates(ctx context.Context, group domain.TaskGroupRef) ([]domain.InventoryCandidate, error) {
	req := gql.NewRequest(candidatesQuery)
	req.Var("group", newTaskGroupInput(group))

	var resp candidatesResponse
	if err := c.run(ctx, "vasInventoryCandidates", req, &resp); err != nil {
		return nil, err
	}

	candidates := make([]domain.InventoryCandidate, len(resp.Candidates))
	for i, w := range resp.Candidates {
		candidates[i] = domain.InventoryCandidate{
			ID:           w.ID,
			PalletID:     w.PalletID,
			BatchID:      w.BatchID,
			Product:      w.Product,
			PackingType:  w.PackingType,
			AvailableQty: w.AvailableQty,
			Location:     w.Location,
			StoredAt:     w.StoredAt,
		}
	}
	return candidates, nil
}

// AssignInventory commits one allocation for every task of the group
func (c *Client) AssignInventory(ctx context.Context, group domain.TaskGroupRef, lines []domain.AllocationLine) (*domain.MutationResult, error) {
	inventories := make([]inventoryInput, len(lines))
	for i, l := range lines {
		inventories[i] = inventoryInput{InventoryID: l.CandidateID, Qty: l.Qty}
	}

	req := gql.NewRequest(assignMutation)
	req.Var("orderNo", group.OrderNo)
	req.Var("taskNames", group.TaskNames)
	req.Var("inventories", inventories)

	var resp assignResponse
	if err := c.run(ctx, "assignVasInventories", req, &resp); err != nil {
		return nil, err
	}
	return resp.Payload.result(), nil
}

// ExecuteTask moves a task to done
func (c *Client) ExecuteTask(ctx context.Context, ref domain.TaskRef, issue string) (*domain.MutationResult, error) {
	req := gql.NewRequest(executeMutation)
	req.Var("task", taskRefInput{OrderNo: ref.OrderNo, Name: ref.Name})
	if issue != "" {
		req.Var("issue", issue)
	}

	var resp executeResponse
	if err := c.run(ctx, "executeVas", req, &resp); err != nil {
		return nil, err
	}
	return resp.Payload.result(), nil
}

// UndoTask reopens a done task
func (c *Client) UndoTask(ctx context.Context, ref domain.TaskRef, to domain.TaskStatus) (*domain.MutationResult, error) {
	req := gql.NewRequest(undoMutation)
	req.Var("task", taskRefInput{OrderNo: ref.OrderNo, Name: ref.Name})
	req.Var("toStatus", string(to))

	var resp undoResponse
	if err := c.run(ctx, "undoVas", req, &resp); err != nil {
		return nil, err
	}
	return resp.Payload.result(), nil
}

// CompleteOrder closes the order
func (c *Client) CompleteOrder(ctx context.Context, orderNo string) error {
	req := gql.NewRequest(completeMutation)
	req.Var("orderNo", orderNo)

	var resp completeResponse
	return c.run(ctx, "completeVas", req, &resp)
}

func (c *Client) run(ctx context.Context, operation string, req *gql.Request, resp interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	ctx, span := c.tracer.Start(ctx, "graphql "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("graphql.operation.name", operation)),
	)

	err := c.limiter.Wait(ctx)
	if err == nil {
		err = c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.gql.Run(ctx, req, resp)
		})
	}
	tracing.EndSpan(span, err)

	if err != nil {
		c.logger.WithError(err).Debug("GraphQL call failed", "operation", operation)
		return toRemoteError(operation, err)
	}
	return nil
}

// isTransportFailure is false for errors the server answered with,
// so business rejections never trip the breaker
func isTransportFailure(err error) bool {
	msg := err.Error()
	return !strings.HasPrefix(msg, errorPrefix) || strings.HasPrefix(msg, non200Response)
}

func toRemoteError(operation string, err error) *domain.RemoteError {
	return &domain.RemoteError{
		Operation: operation,
		Message:   strings.TrimPrefix(err.Error(), errorPrefix),
		Err:       err,
	}
}
