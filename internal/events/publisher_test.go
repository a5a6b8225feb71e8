package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/batch"
)

type published struct {
	channel string
	payload []byte
}

type fakeClient struct {
	err  error
	sent []published
}

func (f *fakeClient) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.sent = append(f.sent, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (f *fakeClient) Close() error { return nil }

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(fc, nil)

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), batch.Event{
		Type:       batch.EventBatchCommitted,
		BatchID:    "b-1",
		TeacherID:  "t-1",
		ClassID:    "c-1",
		ActivityID: "a-1",
		Count:      3,
		At:         at,
	}))

	require.Len(t, fc.sent, 1)
	assert.Equal(t, "snapcheck.events.batch.committed", fc.sent[0].channel)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fc.sent[0].payload, &got))
	assert.Equal(t, "batch.committed", got["type"])
	assert.Equal(t, "b-1", got["batch_id"])
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, "snapcheck", got["source"])
	assert.Equal(t, "2026-03-01T09:30:00Z", got["at"])
}

func TestPublisher_NotifySwallowsErrors(t *testing.T) {
	fc := &fakeClient{err: errors.New("connection refused")}
	p := newPublisher(fc, nil)

	err := p.Publish(context.Background(), batch.Event{Type: batch.EventEssayFailed})
	assert.ErrorContains(t, err, "snapcheck.events.essay.failed")

	assert.NotPanics(t, func() {
		p.Notify(context.Background(), batch.Event{Type: batch.EventEssayFailed})
	})
	assert.Empty(t, fc.sent)
}

func TestDial_BadURL(t *testing.T) {
	_, err := Dial(context.Background(), "not-a-url://", nil)
	assert.Error(t, err)
}
