package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/cloudevents"
	"github.com/wms-platform/vas-service/pkg/kafka"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/mongodb"
	"github.com/wms-platform/vas-service/pkg/outbox"
	outboxmongo "github.com/wms-platform/vas-service/pkg/outbox/mongodb"
)

// JournalCollection holds one document per server-confirmed mutation
const JournalCollection = "vas_journal"

const aggregateType = "VASOrder"

// JournalRepository implements domain.ExecutionJournal. Each entry and its
// outbox event are written in one transaction.
type JournalRepository struct {
	client       *mongodb.Client
	collection   *mongo.Collection
	outboxRepo   *outboxmongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	topic        string
}

var _ domain.ExecutionJournal = (*JournalRepository)(nil)

// NewJournalRepository creates a new JournalRepository
func NewJournalRepository(client *mongodb.Client, outboxRepo *outboxmongo.OutboxRepository, eventFactory *cloudevents.EventFactory) *JournalRepository {
	return &JournalRepository{
		client:       client,
		collection:   client.Database().Collection(JournalCollection),
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		topic:        kafka.Topics.VASEvents,
	}
}

// EnsureIndexes creates the journal indexes
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderNo", Value: 1}, {Key: "recordedAt", Value: 1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create journal indexes: %w", err)
	}
	return nil
}

// Record stores the entry and queues its CloudEvent for publishing
func (r *JournalRepository) Record(ctx context.Context, entry *domain.JournalEntry) error {
	event := r.eventFactory.CreateOrderEvent(ctx, entry.EventType(), entry.OrderNo, eventData(entry))
	if correlationID, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = correlationID
	}

	outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(entry.OrderNo, aggregateType, r.topic, event)
	if err != nil {
		return fmt.Errorf("failed to build outbox event: %w", err)
	}

	return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sessCtx, entry); err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
		return r.outboxRepo.Save(sessCtx, outboxEvent)
	})
}

// FindByOrder returns the journal of one order, oldest first
func (r *JournalRepository) FindByOrder(ctx context.Context, orderNo string) ([]*domain.JournalEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"orderNo": orderNo}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.JournalEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}
	return entries, nil
}

func eventData(entry *domain.JournalEntry) interface{} {
	var taskName string
	if len(entry.TaskNames) > 0 {
		taskName = entry.TaskNames[0]
	}

	switch entry.Action {
	case domain.JournalTaskExecuted:
		return cloudevents.TaskExecutedData{
			OrderNo:  entry.OrderNo,
			TaskName: taskName,
			Set:      entry.Set,
			Issue:    entry.Issue,
		}
	case domain.JournalTaskUndone:
		return cloudevents.TaskUndoneData{
			OrderNo:      entry.OrderNo,
			TaskName:     taskName,
			Set:          entry.Set,
			TargetStatus: string(entry.TargetStatus),
		}
	case domain.JournalInventoryAssigned:
		data := cloudevents.InventoryAssignedData{
			OrderNo:   entry.OrderNo,
			TaskNames: entry.TaskNames,
		}
		for _, l := range entry.Lines {
			data.Lines = append(data.Lines, cloudevents.AssignedInventory{CandidateID: l.CandidateID, Qty: l.Qty})
			data.Total += l.Qty
		}
		return data
	case domain.JournalOrderCompleted:
		return cloudevents.OrderCompletedData{
			OrderNo:     entry.OrderNo,
			SetCount:    entry.SetCount,
			TaskCount:   entry.TaskCount,
			CompletedAt: entry.RecordedAt,
		}
	}
	return entry
}
