//go:build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/guttosm/sortline-service/internal/circuitbreaker"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/repository"
	"github.com/guttosm/sortline-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingService_Integration(t *testing.T) {
	ctx := context.Background()

	mongoContainer, err := testutil.SetupMongoDB(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, mongoContainer.Cleanup(ctx))
	}()

	db, err := repository.NewMongoDB(mongoContainer.URI, "test_sortline")
	require.NoError(t, err)
	defer func() {
		_ = db.Close(ctx)
	}()

	err = db.SetLogsTTL(ctx, 30)
	require.NoError(t, err)

	logsRepo := repository.NewLogsRepository(db)
	loggingService := NewLoggingService(logsRepo)

	t.Run("persist a scan audit entry", func(t *testing.T) {
		entry := &model.LogEntry{
			Level:      "info",
			Message:    "Scan processed",
			RequestID:  "station-7-scan-0042",
			Method:     "POST",
			Path:       "/api/scan",
			WorkerID:   "worker-7",
			JobID:      "job-42",
			ActionType: "scan",
		}

		err := loggingService.CreateLog(ctx, entry)
		assert.NoError(t, err)
		assert.False(t, entry.ID.IsZero())
	})

	t.Run("persist a batch from the write-behind pool", func(t *testing.T) {
		entries := []*model.LogEntry{
			{
				Level:      "info",
				Message:    "Scan processed",
				RequestID:  "station-7-scan-0043",
				ActionType: "scan",
			},
			{
				Level:      "error",
				Message:    "Requirement not found",
				RequestID:  "station-7-scan-0044",
				ActionType: "scan",
			},
		}

		err := loggingService.CreateLogs(ctx, entries)
		assert.NoError(t, err)
	})

	t.Run("query audit trail by request ID", func(t *testing.T) {
		opts := model.LogQueryOptions{
			RequestID: "station-7-scan-0042",
		}

		entries, err := loggingService.QueryLogs(ctx, opts)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(entries), 1)
		assert.Equal(t, "station-7-scan-0042", entries[0].RequestID)
		assert.Equal(t, "worker-7", entries[0].WorkerID)
	})

	t.Run("query audit trail by level", func(t *testing.T) {
		opts := model.LogQueryOptions{
			Level: "error",
		}

		entries, err := loggingService.QueryLogs(ctx, opts)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(entries), 1)
		assert.Equal(t, "error", entries[0].Level)
	})

	t.Run("count all entries", func(t *testing.T) {
		count, err := loggingService.CountLogs(ctx, model.LogQueryOptions{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(3))
	})

	t.Run("count entries by level", func(t *testing.T) {
		opts := model.LogQueryOptions{
			Level: "info",
		}

		count, err := loggingService.CountLogs(ctx, opts)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(2))
	})

	t.Run("query a shift's time window", func(t *testing.T) {
		now := time.Now()
		startTime := now.Add(-1 * time.Hour)
		endTime := now.Add(1 * time.Hour)

		opts := model.LogQueryOptions{
			StartTime: &startTime,
			EndTime:   &endTime,
		}

		entries, err := loggingService.QueryLogs(ctx, opts)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(entries), 0)
	})
}

func TestLoggingServiceWithCircuitBreaker_Integration(t *testing.T) {
	ctx := context.Background()

	mongoContainer, err := testutil.SetupMongoDB(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, mongoContainer.Cleanup(ctx))
	}()

	db, err := repository.NewMongoDB(mongoContainer.URI, "test_sortline")
	require.NoError(t, err)
	defer func() {
		_ = db.Close(ctx)
	}()

	logsRepo := repository.NewLogsRepository(db)
	cb := repository.NewLogsRepositoryWithCircuitBreaker(
		logsRepo,
		circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 2,
			SuccessThreshold: 1,
			Timeout:          100 * time.Millisecond,
			Name:             "mongodb_logs",
		}),
	)
	loggingService := NewLoggingService(cb)

	t.Run("closed breaker passes audit writes through", func(t *testing.T) {
		entry := &model.LogEntry{
			Level:      "info",
			Message:    "Scan processed",
			ActionType: "scan",
		}

		err := loggingService.CreateLog(ctx, entry)
		assert.NoError(t, err)
	})
}
