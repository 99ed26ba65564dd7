package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
)

type MockFitter struct {
	mock.Mock
}

func (m *MockFitter) FitModels(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelFitReport), args.Error(1)
}

func TestRunRefitUsesCurrentTimeAsCutoff(t *testing.T) {
	fitter := new(MockFitter)
	s := NewScheduler(fitter, logger.NewNopLogger())
	now := time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	report := &models.ModelFitReport{TrainingCutoff: now, TrainingSamples: 240}
	fitter.On("FitModels", mock.Anything, now).Return(report, nil)

	got, err := s.RunRefit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report, got)

	last, lastErr := s.LastRefit()
	assert.Equal(t, report, last)
	assert.NoError(t, lastErr)
	fitter.AssertExpectations(t)
}

func TestRunRefitKeepsPreviousReport(t *testing.T) {
	fitter := new(MockFitter)
	s := NewScheduler(fitter, logger.NewNopLogger())

	first := &models.ModelFitReport{TrainingSamples: 100}
	fitter.On("FitModels", mock.Anything, mock.Anything).Return(first, nil).Once()
	fitter.On("FitModels", mock.Anything, mock.Anything).Return(nil, models.ErrInsufficientHistory).Once()

	_, err := s.RunRefit(context.Background())
	require.NoError(t, err)
	_, err = s.RunRefit(context.Background())
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)

	last, lastErr := s.LastRefit()
	assert.Equal(t, first, last)
	assert.ErrorIs(t, lastErr, models.ErrInsufficientHistory)
}

func TestSchedulerLifecycle(t *testing.T) {
	s := NewScheduler(new(MockFitter), logger.NewNopLogger())

	assert.Error(t, s.Start(), "no jobs scheduled")
	assert.Error(t, s.ScheduleRefit("not a cron"))
	require.NoError(t, s.ScheduleRefit("0 4 * * *"))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())
	assert.Error(t, s.ScheduleRefit("@hourly"))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}
