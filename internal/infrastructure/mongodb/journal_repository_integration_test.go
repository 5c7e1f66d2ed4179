//go:build integration

package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/cloudevents"
	"github.com/wms-platform/vas-service/pkg/kafka"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/mongodb"
	outboxmongo "github.com/wms-platform/vas-service/pkg/outbox/mongodb"
	testhelpers "github.com/wms-platform/vas-service/pkg/testing"
)

func setupJournal(t *testing.T) (*JournalRepository, *outboxmongo.OutboxRepository) {
	t.Helper()
	ctx := context.Background()

	container, err := testhelpers.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(ctx) })

	client, err := container.GetClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	wrapped := mongodb.Wrap(client, "vas_test")
	outboxRepo := outboxmongo.NewOutboxRepository(wrapped.Database())
	require.NoError(t, outboxRepo.EnsureIndexes(ctx))

	repo := NewJournalRepository(wrapped, outboxRepo, cloudevents.NewEventFactory(cloudevents.SourceVAS))
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo, outboxRepo
}

func TestJournalRepository_Record(t *testing.T) {
	repo, outboxRepo := setupJournal(t)
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")

	first := &domain.JournalEntry{
		ID:         uuid.NewString(),
		OrderNo:    "VAS-0001",
		Action:     domain.JournalTaskExecuted,
		TaskNames:  []string{"T1"},
		Set:        1,
		Issue:      "dent",
		RecordedAt: time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond),
	}
	second := &domain.JournalEntry{
		ID:         uuid.NewString(),
		OrderNo:    "VAS-0001",
		Action:     domain.JournalOrderCompleted,
		Trigger:    "auto",
		SetCount:   1,
		TaskCount:  1,
		RecordedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, second))

	entries, err := repo.FindByOrder(ctx, "VAS-0001")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "dent", entries[0].Issue)
	assert.Equal(t, domain.JournalOrderCompleted, entries[1].Action)

	events, err := outboxRepo.FindByAggregateID(ctx, "VAS-0001")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, kafka.Topics.VASEvents, events[0].Topic)

	types := []string{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []string{cloudevents.VASTaskExecuted, cloudevents.VASOrderCompleted}, types)

	event, err := events[0].ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "VAS-0001", event.OrderID)
}

func TestJournalRepository_RecordRollsBackOnDuplicate(t *testing.T) {
	repo, outboxRepo := setupJournal(t)
	ctx := context.Background()

	entry := &domain.JournalEntry{
		ID:         uuid.NewString(),
		OrderNo:    "VAS-0002",
		Action:     domain.JournalTaskUndone,
		TaskNames:  []string{"T1"},
		RecordedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Record(ctx, entry))
	assert.Error(t, repo.Record(ctx, entry))

	events, err := outboxRepo.FindByAggregateID(ctx, "VAS-0002")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
