package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/rabbitmq"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type TrialRepoMock struct{ mock.Mock }

func (m *TrialRepoMock) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	args := m.Called(ctx, from, to)
	if s := args.Get(0); s != nil {
		return s.([]models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey, messageID string, message any) error {
	return m.Called(ctx, routingKey, messageID, message).Error(0)
}

type counter int

func (c *counter) TrialReminderPublished() { *c++ }

var now = time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

func trialEnding(tenantID string, end time.Time) models.Subscription {
	return models.Subscription{TenantID: tenantID, Status: models.StatusTrial, TrialEndDate: &end}
}

func newScheduler(repo TrialRepository, pub Publisher, c *counter) *Scheduler {
	s := New(repo, pub, 72*time.Hour, c, newNoopLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestScheduler_RunOnce(t *testing.T) {
	repo := new(TrialRepoMock)
	pub := new(PublisherMock)
	repo.On("ListTrialsEndingBetween", mock.Anything, now, now.Add(72*time.Hour)).Return([]models.Subscription{
		trialEnding("t-1", now.Add(20*time.Hour)),
		trialEnding("t-2", now.Add(49*time.Hour)),
	}, nil)
	pub.On("Publish", mock.Anything, rabbitmq.RouteTrialExpiring, "trial-expiring:t-1:2026-03-15",
		Reminder{TenantID: "t-1", TrialEndDate: now.Add(20 * time.Hour), DaysLeft: 1}).Return(nil).Once()
	pub.On("Publish", mock.Anything, rabbitmq.RouteTrialExpiring, "trial-expiring:t-2:2026-03-15",
		Reminder{TenantID: "t-2", TrialEndDate: now.Add(49 * time.Hour), DaysLeft: 3}).Return(nil).Once()
	var c counter

	n, err := newScheduler(repo, pub, &c).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, counter(2), c)
	pub.AssertExpectations(t)
}

func TestScheduler_RunOncePublishFailureContinues(t *testing.T) {
	repo := new(TrialRepoMock)
	pub := new(PublisherMock)
	repo.On("ListTrialsEndingBetween", mock.Anything, mock.Anything, mock.Anything).Return([]models.Subscription{
		trialEnding("t-1", now.Add(time.Hour)),
		trialEnding("t-2", now.Add(2*time.Hour)),
	}, nil)
	pub.On("Publish", mock.Anything, mock.Anything, "trial-expiring:t-1:2026-03-15", mock.Anything).Return(errors.New("channel closed"))
	pub.On("Publish", mock.Anything, mock.Anything, "trial-expiring:t-2:2026-03-15", mock.Anything).Return(nil)
	var c counter

	n, err := newScheduler(repo, pub, &c).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, counter(1), c)
}

func TestScheduler_RunOnceNothingDue(t *testing.T) {
	repo := new(TrialRepoMock)
	pub := new(PublisherMock)
	repo.On("ListTrialsEndingBetween", mock.Anything, mock.Anything, mock.Anything).Return([]models.Subscription{}, nil)

	n, err := newScheduler(repo, pub, nil).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_RunOnceRepositoryError(t *testing.T) {
	repo := new(TrialRepoMock)
	repo.On("ListTrialsEndingBetween", mock.Anything, mock.Anything, mock.Anything).Return(nil, models.ErrUnavailable)

	_, err := newScheduler(repo, new(PublisherMock), nil).RunOnce(context.Background())

	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	s := newScheduler(new(TrialRepoMock), new(PublisherMock), nil)
	assert.Error(t, s.Start("not a cron spec"))
}

func TestScheduler_StartStop(t *testing.T) {
	s := newScheduler(new(TrialRepoMock), new(PublisherMock), nil)
	require.NoError(t, s.Start("0 8 * * *"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestDaysLeft(t *testing.T) {
	assert.Equal(t, 1, daysLeft(now, now.Add(time.Hour)))
	assert.Equal(t, 1, daysLeft(now, now.Add(24*time.Hour)))
	assert.Equal(t, 2, daysLeft(now, now.Add(25*time.Hour)))
}
