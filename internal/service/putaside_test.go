package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/repository"
)

func TestPutAsideDrain(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ScanService, *PutAsideService, *repository.Store, *model.Job, *model.ScanSession) {
		store, _ := repository.NewMemoryStoreSet()
		scan := NewScanService(store, nil)
		putAside := NewPutAsideService(store, nil, scan)
		job := seedJob(t, store, 2, []*model.BoxRequirement{
			{BoxNumber: 1, CustomerName: "Acme", BarCode: "111", RequiredQty: 1},
			{BoxNumber: model.UnassignedBox, CustomerName: "Overflow", BarCode: "222", RequiredQty: 2},
			{BoxNumber: model.UnassignedBox, CustomerName: "Overflow", BarCode: "333", RequiredQty: 1},
		})
		session, err := scan.CreateOrResumeSession(ctx, "worker-1", job.ID)
		require.NoError(t, err)
		return scan, putAside, store, job, session
	}

	t.Run("converts queued items into increments on the new box", func(t *testing.T) {
		scan, putAside, store, job, session := setup(t)

		for _, barcode := range []string{"222", "222", "333"} {
			result, err := scan.ProcessScan(ctx, session.ID, barcode)
			require.NoError(t, err)
			require.Equal(t, model.OutcomeQueued, result.Outcome)
		}

		result, err := putAside.Drain(ctx, job.ID, "Overflow", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, result.BoxNumber)
		assert.Len(t, result.DrainedItems, 3)
		for _, item := range result.DrainedItems {
			assert.True(t, item.Drained())
			assert.Equal(t, 2, item.AllocatedBoxNumber)
		}

		reqs, err := store.Requirements.FindByBox(ctx, job.ID, 2)
		require.NoError(t, err)
		byBarcode := map[string]*model.BoxRequirement{}
		for _, r := range reqs {
			byBarcode[r.BarCode] = r
		}
		require.Len(t, byBarcode, 2)
		assert.Equal(t, 2, byBarcode["222"].ScannedQty)
		assert.True(t, byBarcode["222"].IsComplete)
		assert.Equal(t, 1, byBarcode["333"].ScannedQty)

		queued, err := store.PutAside.ListQueued(ctx, job.ID)
		require.NoError(t, err)
		assert.Empty(t, queued)
	})

	t.Run("scans after drain land in the assigned box", func(t *testing.T) {
		scan, putAside, _, job, session := setup(t)

		result, err := scan.ProcessScan(ctx, session.ID, "222")
		require.NoError(t, err)
		require.Equal(t, model.OutcomeQueued, result.Outcome)

		_, err = putAside.Drain(ctx, job.ID, "Overflow", 2)
		require.NoError(t, err)

		result, err = scan.ProcessScan(ctx, session.ID, "222")
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeMatch, result.Outcome)
		assert.Equal(t, 2, result.Requirement.BoxNumber)
		assert.Equal(t, "2/2", result.Progress)
	})

	t.Run("rejects an out-of-range box", func(t *testing.T) {
		_, putAside, _, job, _ := setup(t)

		_, err := putAside.Drain(ctx, job.ID, "Overflow", 0)
		assert.ErrorIs(t, err, model.ErrBoxOutOfRange)
		_, err = putAside.Drain(ctx, job.ID, "Overflow", 3)
		assert.ErrorIs(t, err, model.ErrBoxOutOfRange)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, putAside, _, _, _ := setup(t)

		_, err := putAside.Drain(ctx, "missing", "Overflow", 1)
		assert.ErrorIs(t, err, model.ErrJobNotFound)
	})

	t.Run("draining a customer with nothing queued assigns the box only", func(t *testing.T) {
		_, putAside, store, job, _ := setup(t)

		result, err := putAside.Drain(ctx, job.ID, "Overflow", 2)
		require.NoError(t, err)
		assert.Empty(t, result.DrainedItems)
		require.Len(t, result.Requirements, 2)
		for _, r := range result.Requirements {
			assert.Equal(t, 2, r.BoxNumber)
			assert.Equal(t, 0, r.ScannedQty)
		}

		reqs, err := store.Requirements.FindByBox(ctx, job.ID, 2)
		require.NoError(t, err)
		assert.Len(t, reqs, 2)
	})

	t.Run("publishes box assignment and drained deltas", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		hub := broadcast.NewHub(16)
		defer hub.Close()
		scan := NewScanService(store, hub)
		putAside := NewPutAsideService(store, hub, scan)
		job := seedJob(t, store, 1, []*model.BoxRequirement{
			{BoxNumber: model.UnassignedBox, CustomerName: "Overflow", BarCode: "222", RequiredQty: 1},
		})
		sub := hub.Subscribe(job.ID)
		defer sub.Close()

		_, err := putAside.Drain(ctx, job.ID, "Overflow", 1)
		require.NoError(t, err)

		ev := <-sub.Events()
		assert.Equal(t, broadcast.EventBoxAssigned, ev.Type)
		assert.Equal(t, 1, ev.BoxNumber)

		ev = <-sub.Events()
		assert.Equal(t, broadcast.EventPutAsideDrained, ev.Type)
		delta, ok := ev.Payload.(model.ScanDelta)
		require.True(t, ok)
		assert.Equal(t, 1, delta.BoxNumber)
	})
}

func TestPutAsideList(t *testing.T) {
	ctx := context.Background()
	store, _ := repository.NewMemoryStoreSet()
	scan := NewScanService(store, nil)
	putAside := NewPutAsideService(store, nil, scan)
	job := seedJob(t, store, 1, []*model.BoxRequirement{
		{BoxNumber: model.UnassignedBox, CustomerName: "Overflow", BarCode: "222", RequiredQty: 3},
	})
	session, err := scan.CreateOrResumeSession(ctx, "worker-1", job.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := scan.ProcessScan(ctx, session.ID, "222")
		require.NoError(t, err)
	}

	items, err := putAside.List(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt), "newest first")
	}

	_, err = putAside.List(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}
