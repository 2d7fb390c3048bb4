package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/storedir/store-directory/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeExportService struct {
	mu         sync.Mutex
	exports    int
	prunedWith []int
	exportErr  error
	pruneErr   error
	deadline   bool
	delay      time.Duration
}

func (f *fakeExportService) ExportToStorage(ctx context.Context) (*domain.StoreExportResult, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	f.exports++
	return &domain.StoreExportResult{StoragePath: "exports/stores-x.json", Size: 10, Count: 3}, nil
}

func (f *fakeExportService) PruneExports(ctx context.Context, retain int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prunedWith = append(f.prunedWith, retain)
	return 1, f.pruneErr
}

func (f *fakeExportService) exportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exports
}

func TestScheduler_AddJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "@every 1h", func() {}))
	require.NoError(t, s.AddJob("a", "0 0 3 * * *", func() {}))
	assert.Equal(t, []string{"a", "b"}, s.JobNames())

	assert.Error(t, s.AddJob("a", "@every 1h", func() {}), "duplicate name")
	assert.Error(t, s.AddJob("c", "not a cron", func() {}))
}

func TestScheduler_StopWaitsForRunNow(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	s.Start()

	var done bool
	var mu sync.Mutex
	s.RunNow("slow", func() {
		time.Sleep(200 * time.Millisecond)
		mu.Lock()
		done = true
		mu.Unlock()
	})

	select {
	case <-s.Stop().Done():
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, done)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestExportJob_Run(t *testing.T) {
	svc := &fakeExportService{}
	core, logs := observer.New(zap.InfoLevel)

	NewExportJob(svc, zap.New(core), time.Minute, 5).Run()

	assert.Equal(t, 1, svc.exports)
	assert.Equal(t, []int{5}, svc.prunedWith)
	assert.True(t, svc.deadline)
	assert.Equal(t, 1, logs.FilterMessage("store export job completed").Len())
}

func TestExportJob_ExportFailureSkipsPrune(t *testing.T) {
	svc := &fakeExportService{exportErr: errors.New("storage down")}
	core, logs := observer.New(zap.InfoLevel)

	NewExportJob(svc, zap.New(core), time.Minute, 5).Run()

	assert.Empty(t, svc.prunedWith)
	assert.Equal(t, 1, logs.FilterMessage("store export failed").Len())
}

func TestExportJob_PruneFailureIsNotFatal(t *testing.T) {
	svc := &fakeExportService{pruneErr: errors.New("list failed")}
	core, logs := observer.New(zap.InfoLevel)

	NewExportJob(svc, zap.New(core), time.Minute, 5).Run()

	assert.Equal(t, 1, svc.exports)
	assert.Equal(t, 1, logs.FilterMessage("failed to prune old exports").Len())
	assert.Equal(t, 1, logs.FilterMessage("store export job completed").Len())
}

func TestRegisterExportJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	svc := &fakeExportService{}

	require.NoError(t, RegisterExportJob(s, svc, zap.NewNop(), "0 0 3 * * *", time.Minute, 0, false))
	assert.Equal(t, []string{ExportJobName}, s.JobNames())

	assert.Error(t, RegisterExportJob(s, svc, zap.NewNop(), "0 0 3 * * *", time.Minute, 0, false))
}

func TestRegisterExportJob_RunOnStartup(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	svc := &fakeExportService{delay: 100 * time.Millisecond}

	require.NoError(t, RegisterExportJob(s, svc, zap.NewNop(), "0 0 3 * * *", time.Minute, 3, true))

	select {
	case <-s.Stop().Done():
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, svc.exportCount())
}
