package mq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMQ_PublishReceive(t *testing.T) {
	q, err := NewInMemoryMQ(4)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, "jobs/1", []byte("templated")))
	require.NoError(t, q.Publish(ctx, "jobs/1", []byte("normalized")))

	message, err := q.Receive(ctx, "jobs/1")
	require.NoError(t, err)
	data, err := q.GetMessageData(message)
	require.NoError(t, err)
	assert.Equal(t, []byte("templated"), data)

	message, err = q.Receive(ctx, "jobs/1")
	require.NoError(t, err)
	data, err = q.GetMessageData(message)
	require.NoError(t, err)
	assert.Equal(t, []byte("normalized"), data)
}

func TestInMemoryMQ_TopicsAreIndependent(t *testing.T) {
	q, err := NewInMemoryMQ(4)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, "jobs/a", []byte("a")))
	require.NoError(t, q.Publish(ctx, "jobs/b", []byte("b")))

	message, err := q.Receive(ctx, "jobs/b")
	require.NoError(t, err)
	data, err := q.GetMessageData(message)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)
}

func TestInMemoryMQ_QueueFull(t *testing.T) {
	q, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, "jobs/1", []byte("x")))
	assert.ErrorIs(t, q.Publish(ctx, "jobs/1", []byte("y")), ErrQueueFull)
}

func TestInMemoryMQ_ReceiveHonorsContext(t *testing.T) {
	q, err := NewInMemoryMQ(4)
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = q.Receive(ctx, "jobs/empty")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryMQ_GetMessageDataRejectsForeignTypes(t *testing.T) {
	q, err := NewInMemoryMQ(4)
	require.NoError(t, err)
	defer q.Close()

	_, err = q.GetMessageData("not bytes")
	assert.Error(t, err)
}
