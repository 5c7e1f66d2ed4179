package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/temporal"
)

// VASCompletedSignal is the payload of the vasCompleted signal
type VASCompletedSignal struct {
	OrderNo     string    `json:"orderNo"`
	CompletedAt time.Time `json:"completedAt"`
}

// CompletionNotifier signals the order fulfillment workflow that VAS work is done
type CompletionNotifier struct {
	client *temporal.Client
	logger *logging.Logger
}

var _ domain.CompletionNotifier = (*CompletionNotifier)(nil)

// NewCompletionNotifier creates a new CompletionNotifier
func NewCompletionNotifier(client *temporal.Client, logger *logging.Logger) *CompletionNotifier {
	return &CompletionNotifier{
		client: client,
		logger: logger.WithComponent("completion-notifier"),
	}
}

// NotifyOrderCompleted sends vasCompleted to order-fulfillment-<orderNo>
func (n *CompletionNotifier) NotifyOrderCompleted(ctx context.Context, orderNo string) error {
	workflowID := temporal.OrderFulfillmentWorkflowID(orderNo)
	signal := VASCompletedSignal{OrderNo: orderNo, CompletedAt: time.Now().UTC()}

	if err := n.client.SignalWorkflow(ctx, workflowID, "", temporal.Signals.VASCompleted, signal); err != nil {
		return fmt.Errorf("failed to signal %s: %w", workflowID, err)
	}

	n.logger.Info("Signaled order fulfillment", "orderNo", orderNo, "workflowId", workflowID)
	return nil
}
