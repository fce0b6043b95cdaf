package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/repository"
)

// seedCheckedBox creates a job with one box already scanned to the
// given tallies, ready for a verification pass.
func seedCheckedBox(t *testing.T, store *repository.Store, scanned map[string]int) *model.Job {
	t.Helper()
	ctx := context.Background()

	job := seedJob(t, store, 2, []*model.BoxRequirement{
		{BoxNumber: 1, CustomerName: "Acme", BarCode: "111", ProductName: "Widget", RequiredQty: 3},
		{BoxNumber: 1, CustomerName: "Acme", BarCode: "222", ProductName: "Gadget", RequiredQty: 2},
	})

	reqs, err := store.Requirements.FindByBox(ctx, job.ID, 1)
	require.NoError(t, err)
	updates := make([]repository.ScannedUpdate, 0, len(reqs))
	for _, r := range reqs {
		updates = append(updates, repository.ScannedUpdate{
			RequirementID: r.ID,
			ScannedQty:    scanned[r.BarCode],
		})
	}
	require.NoError(t, store.Requirements.SetScannedBulk(ctx, updates))
	return job
}

func newCheckService(store *repository.Store) *CheckCountService {
	return NewCheckCountService(store, nil, NewScanService(store, nil))
}

func TestCheckCountStart(t *testing.T) {
	ctx := context.Background()

	t.Run("captures the baseline at start", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 1})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		assert.Equal(t, model.CheckActive, session.Status)
		assert.Equal(t, 5, session.TotalItemsExpected)
	})

	t.Run("second start on the same box conflicts", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2})

		_, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)

		_, err = svc.Start(ctx, job.ID, 1, "worker-2")
		assert.ErrorIs(t, err, model.ErrSessionConflict)
	})

	t.Run("box is free again after cancel", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		cancelled, err := svc.Cancel(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CheckCancelled, cancelled.Status)

		_, err = svc.Start(ctx, job.ID, 1, "supervisor-1")
		assert.NoError(t, err)
	})

	t.Run("empty box", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, nil)

		_, err := svc.Start(ctx, job.ID, 2, "supervisor-1")
		assert.ErrorIs(t, err, model.ErrBoxEmpty)
	})

	t.Run("unknown job", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)

		_, err := svc.Start(ctx, "missing", 1, "supervisor-1")
		assert.ErrorIs(t, err, model.ErrJobNotFound)
	})
}

func TestCheckCountRecordScan(t *testing.T) {
	ctx := context.Background()
	store, _ := repository.NewMemoryStoreSet()
	svc := newCheckService(store)
	job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 1})

	session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
	require.NoError(t, err)

	ev, err := svc.RecordScan(ctx, session.ID, "111")
	require.NoError(t, err)
	assert.Equal(t, 1, ev.CheckedQty)
	assert.Equal(t, 2, ev.OriginalQty)
	assert.False(t, ev.IsExtra)
	assert.NotEmpty(t, ev.RequirementID)

	ev, err = svc.RecordScan(ctx, session.ID, "111")
	require.NoError(t, err)
	assert.Equal(t, 2, ev.CheckedQty, "tally accumulates")

	ev, err = svc.RecordScan(ctx, session.ID, "999")
	require.NoError(t, err)
	assert.True(t, ev.IsExtra, "unexpected barcode is an extra, not an error")
	assert.Empty(t, ev.RequirementID)

	_, err = svc.RecordScan(ctx, "missing", "111")
	assert.ErrorIs(t, err, model.ErrCheckSessionNotFound)
}

func TestCheckCountComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("reports discrepancies without corrections", func(t *testing.T) {
		store, mem := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 1})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		// Checker finds only one unit of 111 and the expected 222.
		_, err = svc.RecordScan(ctx, session.ID, "111")
		require.NoError(t, err)
		_, err = svc.RecordScan(ctx, session.ID, "222")
		require.NoError(t, err)

		summary, err := svc.Complete(ctx, session.ID, CheckCompletion{ApplyCorrections: false})
		require.NoError(t, err)
		assert.False(t, summary.CorrectionsApplied)
		assert.Equal(t, model.CheckCompleted, summary.Session.Status)
		assert.Equal(t, 1, summary.Session.DiscrepanciesFound)

		byBarcode := map[string]model.CheckResult{}
		for _, r := range summary.Results {
			byBarcode[r.BarCode] = r
		}
		assert.Equal(t, model.DiscrepancyUndercount, byBarcode["111"].DiscrepancyType)
		assert.Equal(t, model.DiscrepancyMatch, byBarcode["222"].DiscrepancyType)

		// Live quantities untouched.
		reqs, err := store.Requirements.FindByBox(ctx, job.ID, 1)
		require.NoError(t, err)
		for _, r := range reqs {
			switch r.BarCode {
			case "111":
				assert.Equal(t, 2, r.ScannedQty)
			case "222":
				assert.Equal(t, 1, r.ScannedQty)
			}
		}

		assert.Len(t, mem.ResultsBySession(session.ID), 2)
	})

	t.Run("applies corrections atomically", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 1})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		_, err = svc.RecordScan(ctx, session.ID, "111")
		require.NoError(t, err)

		summary, err := svc.Complete(ctx, session.ID, CheckCompletion{ApplyCorrections: true})
		require.NoError(t, err)
		assert.True(t, summary.CorrectionsApplied)

		reqs, err := store.Requirements.FindByBox(ctx, job.ID, 1)
		require.NoError(t, err)
		for _, r := range reqs {
			switch r.BarCode {
			case "111":
				assert.Equal(t, 1, r.ScannedQty, "overwritten to checked quantity")
				assert.False(t, r.IsComplete)
			case "222":
				assert.Equal(t, 0, r.ScannedQty, "missing line corrected to zero")
			}
		}
	})

	t.Run("explicit corrections override tallies", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 2})

		reqs, err := store.Requirements.FindByBox(ctx, job.ID, 1)
		require.NoError(t, err)
		var target *model.BoxRequirement
		for _, r := range reqs {
			if r.BarCode == "111" {
				target = r
			}
		}
		require.NotNil(t, target)

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		// Supervisor enters 3 by hand instead of re-scanning, and also
		// confirms 222 as counted.
		_, err = svc.RecordScan(ctx, session.ID, "222")
		require.NoError(t, err)
		_, err = svc.RecordScan(ctx, session.ID, "222")
		require.NoError(t, err)

		summary, err := svc.Complete(ctx, session.ID, CheckCompletion{
			ApplyCorrections: true,
			Corrections:      map[string]int{target.ID: 3},
		})
		require.NoError(t, err)

		byBarcode := map[string]model.CheckResult{}
		for _, r := range summary.Results {
			byBarcode[r.BarCode] = r
		}
		assert.Equal(t, 3, byBarcode["111"].CheckedQty)
		assert.Equal(t, model.DiscrepancyOvercount, byBarcode["111"].DiscrepancyType)
		assert.Equal(t, model.DiscrepancyMatch, byBarcode["222"].DiscrepancyType)

		updated, err := store.Requirements.GetByID(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.ScannedQty)
		assert.True(t, updated.IsComplete)
	})

	t.Run("zero-scan completion reports missing, not clean", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 0})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)

		summary, err := svc.Complete(ctx, session.ID, CheckCompletion{})
		require.NoError(t, err)

		byBarcode := map[string]model.CheckResult{}
		for _, r := range summary.Results {
			byBarcode[r.BarCode] = r
		}
		assert.Equal(t, model.DiscrepancyMissing, byBarcode["111"].DiscrepancyType,
			"nonzero baseline with no scans is evidence of absence")
		assert.Equal(t, model.DiscrepancyMatch, byBarcode["222"].DiscrepancyType,
			"zero baseline with no scans is clean")
	})

	t.Run("completed session cannot be completed again", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 1})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		_, err = svc.Complete(ctx, session.ID, CheckCompletion{})
		require.NoError(t, err)

		_, err = svc.Complete(ctx, session.ID, CheckCompletion{})
		assert.ErrorIs(t, err, model.ErrCheckSessionNotFound)
		_, err = svc.RecordScan(ctx, session.ID, "111")
		assert.ErrorIs(t, err, model.ErrCheckSessionNotFound)
	})

	t.Run("unknown barcode scanned during the pass surfaces at completion", func(t *testing.T) {
		store, mem := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2, "222": 1})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		_, err = svc.RecordScan(ctx, session.ID, "999")
		require.NoError(t, err)

		summary, err := svc.Complete(ctx, session.ID, CheckCompletion{ApplyCorrections: true})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Session.ExtraItemsFound)

		extra := findResult(summary.Results, "999", model.DiscrepancyExtra)
		require.NotNil(t, extra)
		assert.Equal(t, 1, extra.CheckedQty)
		assert.Empty(t, extra.RequirementID, "unknown barcode has no requirement")

		stored := findResult(mem.ResultsBySession(session.ID), "999", model.DiscrepancyExtra)
		assert.NotNil(t, stored, "extra result is persisted with the session")
	})

	t.Run("hand-reported extras and counts beyond required", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 3, "222": 2})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		// Required 3 of 111; the checker counts 5 and also finds two
		// stray 888 units loose in the box.
		for i := 0; i < 5; i++ {
			_, err = svc.RecordScan(ctx, session.ID, "111")
			require.NoError(t, err)
		}

		summary, err := svc.Complete(ctx, session.ID, CheckCompletion{
			ExtraItems: []string{"888", "888"},
		})
		require.NoError(t, err)

		overcounted := findResult(summary.Results, "111", model.DiscrepancyOvercount)
		require.NotNil(t, overcounted, "baseline discrepancy is still reported")
		assert.Equal(t, 5, overcounted.CheckedQty)

		excess := findResult(summary.Results, "111", model.DiscrepancyExtra)
		require.NotNil(t, excess, "count beyond required is an extra-item record")
		assert.Equal(t, 2, excess.CheckedQty)
		assert.NotEmpty(t, excess.RequirementID)

		stray := findResult(summary.Results, "888", model.DiscrepancyExtra)
		require.NotNil(t, stray)
		assert.Equal(t, 2, stray.CheckedQty)

		assert.Equal(t, 4, summary.Session.ExtraItemsFound)
	})

	t.Run("next pass baselines on corrected quantities", func(t *testing.T) {
		store, _ := repository.NewMemoryStoreSet()
		svc := newCheckService(store)
		job := seedCheckedBox(t, store, map[string]int{"111": 2})

		session, err := svc.Start(ctx, job.ID, 1, "supervisor-1")
		require.NoError(t, err)
		_, err = svc.RecordScan(ctx, session.ID, "111")
		require.NoError(t, err)
		_, err = svc.Complete(ctx, session.ID, CheckCompletion{ApplyCorrections: true})
		require.NoError(t, err)

		second, err := svc.Start(ctx, job.ID, 1, "supervisor-2")
		require.NoError(t, err)
		ev, err := svc.RecordScan(ctx, second.ID, "111")
		require.NoError(t, err)
		assert.Equal(t, 1, ev.OriginalQty, "baseline reflects the applied correction")
	})
}

// findResult returns the first result matching barcode and type, nil
// when absent.
func findResult(results []model.CheckResult, barCode string, dt model.DiscrepancyType) *model.CheckResult {
	for i := range results {
		if results[i].BarCode == barCode && results[i].DiscrepancyType == dt {
			return &results[i]
		}
	}
	return nil
}

func TestCheckCountStartConcurrent(t *testing.T) {
	ctx := context.Background()
	store, _ := repository.NewMemoryStoreSet()
	svc := newCheckService(store)
	job := seedCheckedBox(t, store, map[string]int{"111": 2})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Start(ctx, job.ID, 1, fmt.Sprintf("supervisor-%d", n))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	started, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, model.ErrSessionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	assert.Equal(t, 1, started, "exactly one pass holds the box")
	assert.Equal(t, attempts-1, conflicts)
}
