package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"posevault/internal/repo"
	"posevault/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	runs int
	err  error
}

func (s *countingSweeper) Run(ctx context.Context) (service.SweepResult, error) {
	s.runs++
	return service.SweepResult{Deactivated: 2, Notified: 1}, s.err
}

func newLock(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRunSweep_HoldsAndReleasesLock(t *testing.T) {
	mr, rdb := newLock(t)
	sweeper := &countingSweeper{}

	res, ran, err := RunSweep(context.Background(), repo.NewRedisLock(rdb, SweepLockKey, time.Minute), sweeper)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, service.SweepResult{Deactivated: 2, Notified: 1}, res)
	assert.Equal(t, 1, sweeper.runs)
	assert.False(t, mr.Exists(SweepLockKey))
}

func TestRunSweep_SkipsWhenLockHeld(t *testing.T) {
	_, rdb := newLock(t)
	ctx := context.Background()
	holder := repo.NewRedisLock(rdb, SweepLockKey, time.Minute)
	require.NoError(t, holder.Lock(ctx))

	sweeper := &countingSweeper{}
	_, ran, err := RunSweep(ctx, repo.NewRedisLock(rdb, SweepLockKey, time.Minute), sweeper)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, sweeper.runs)

	require.NoError(t, holder.Unlock(ctx))
	_, ran, err = RunSweep(ctx, repo.NewRedisLock(rdb, SweepLockKey, time.Minute), sweeper)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunSweep_NilLockAndErrors(t *testing.T) {
	boom := errors.New("boom")
	sweeper := &countingSweeper{err: boom}
	_, ran, err := RunSweep(context.Background(), nil, sweeper)
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

type fakeQueue struct {
	bodies [][]byte
	err    error
}

func (q *fakeQueue) PublishNotify(ctx context.Context, body []byte) error {
	q.bodies = append(q.bodies, body)
	return q.err
}

func TestQueuePublisher_RoundTripsThroughDecode(t *testing.T) {
	q := &fakeQueue{}
	pub := NewQueuePublisher(q)
	ev := service.NotifyEvent{SharedGalleryID: 7, Type: "favorite", ViewerName: "Ana", ImageID: "i1"}
	require.NoError(t, pub.Publish(context.Background(), ev))
	require.Len(t, q.bodies, 1)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(q.bodies[0], &raw))
	assert.Contains(t, raw, "enqueued_at")
	assert.EqualValues(t, 7, raw["event"].(map[string]any)["sharedGalleryId"])

	msg, err := DecodeNotifyMessage(q.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, ev, msg.Event)
}

func TestDecodeNotifyMessage_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `{`,
		"missing type": `{"event":{"sharedGalleryId":1}}`,
		"missing id":   `{"event":{"type":"view"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeNotifyMessage([]byte(body))
			assert.Error(t, err)
		})
	}
}
