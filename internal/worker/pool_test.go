package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/pkg/queue"
	"github.com/qs3c/ecogrid_server/internal/pkg/sms"
	"github.com/qs3c/ecogrid_server/internal/repository"
	"github.com/qs3c/ecogrid_server/internal/service"
	"github.com/qs3c/ecogrid_server/internal/testutil"
)

func setupTestQueue(t *testing.T) *queue.Queue {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return queue.NewQueue(client, "test_notifications")
}

func runPool(t *testing.T, q *queue.Queue, p *Processor) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, q, p, 2, 50*time.Millisecond)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("worker pool did not stop")
		}
	})
	return cancel
}

func TestRun_DeliversQueuedNotification(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.TestUser(t, db, testutil.WithMobile("+15551234567"))

	gw := testutil.NewFakeGateway()
	q := setupTestQueue(t)
	notifier := service.NewNotificationService(repo, sms.NewMessenger(gw, "+15550000000", false), q, nil, true)

	status, err := notifier.NotifyPurchase(context.Background(), user, "Basic", 499)
	require.NoError(t, err)
	require.Equal(t, model.NotificationPending, status)

	runPool(t, q, NewProcessor(notifier, q, 3, 0))

	require.Eventually(t, func() bool { return gw.SentCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		stored, err := repo.GetByEmail(context.Background(), user.Email)
		return err == nil && stored.NotificationStatus == model.NotificationDelivered
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_RetriesThenFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.TestUser(t, db, testutil.WithMobile("+15551234567"))

	gw := testutil.NewFakeGateway()
	gw.SendErr = errors.New("provider unavailable")
	q := setupTestQueue(t)
	notifier := service.NewNotificationService(repo, sms.NewMessenger(gw, "+15550000000", false), q, nil, true)

	_, err := notifier.NotifyPurchase(context.Background(), user, "Basic", 499)
	require.NoError(t, err)

	runPool(t, q, NewProcessor(notifier, q, 3, 0))

	require.Eventually(t, func() bool {
		stored, err := repo.GetByEmail(context.Background(), user.Email)
		return err == nil && stored.NotificationStatus == model.NotificationFailed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, gw.Calls())
}

func TestRun_RecoversAfterTransientFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	user := testutil.TestUser(t, db, testutil.WithMobile("+15551234567"))

	gw := testutil.NewFakeGateway()
	gw.SendErr = errors.New("provider unavailable")
	gw.FailTimes = 1
	q := setupTestQueue(t)
	notifier := service.NewNotificationService(repo, sms.NewMessenger(gw, "+15550000000", false), q, nil, true)

	_, err := notifier.NotifyPurchase(context.Background(), user, "Basic", 499)
	require.NoError(t, err)

	runPool(t, q, NewProcessor(notifier, q, 3, 0))

	require.Eventually(t, func() bool { return gw.SentCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, gw.Calls())
}
