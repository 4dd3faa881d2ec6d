package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	after := &testJob{name: "after"}
	registry, err := NewRegistry(failing, ok, after)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "giftledger_job_success_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "giftledger_job_failure_total"))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "sweep"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: lock})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "sweep"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: &fakeLock{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = service.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
