package colorsync

import (
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPendingQueue_EnqueueCoalescesByIdentity(t *testing.T) {
	ctx := context.Background()
	q := NewPendingQueue(NewMemoryBlobStore(), nil)

	empty, err := q.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, q.Enqueue(ctx, UpsertOp(fixtureR1, t0.Add(time.Second)), UpsertOp(fixtureR2, t0.Add(2*time.Second))))
	require.NoError(t, q.Enqueue(ctx, DeleteOp(fixtureR1.ID, t0.Add(3*time.Second))))

	ops, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, OpUpsert, ops[0].Kind)
	require.Equal(t, fixtureR2.ID, ops[0].ID)
	require.Equal(t, OpDelete, ops[1].Kind)
	require.Equal(t, fixtureR1.ID, ops[1].ID)
	require.Nil(t, ops[1].Record)

	// drain does not remove
	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	op, found, err := q.Find(ctx, fixtureR2.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, fixtureR2, *op.Record)

	require.NoError(t, q.Remove(ctx, fixtureR2.ID))
	require.NoError(t, q.Clear(ctx))
	empty, err = q.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestPendingQueue_OrderedByEnqueueTime(t *testing.T) {
	ctx := context.Background()
	q := NewPendingQueue(NewMemoryBlobStore(), nil)

	require.NoError(t, q.Enqueue(ctx, UpsertOp(fixtureR2, t0.Add(5*time.Second))))
	require.NoError(t, q.Enqueue(ctx, UpsertOp(fixtureR1, t0.Add(time.Second))))

	ops, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, fixtureR1.ID, ops[0].ID)
	require.Equal(t, fixtureR2.ID, ops[1].ID)
}

func TestPendingQueue_SettleKeepsReplacedEntries(t *testing.T) {
	ctx := context.Background()
	q := NewPendingQueue(NewMemoryBlobStore(), nil)

	flushed := []Operation{UpsertOp(fixtureR1, t0), UpsertOp(fixtureR2, t0)}
	require.NoError(t, q.Enqueue(ctx, flushed...))
	// R1 deleted while the flush was in flight
	require.NoError(t, q.Enqueue(ctx, DeleteOp(fixtureR1.ID, t0.Add(time.Second))))

	require.NoError(t, q.Settle(ctx, flushed))
	ops, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, DeleteOp(fixtureR1.ID, t0.Add(time.Second)), ops[0])
}

func TestPendingQueue_CorruptBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	require.NoError(t, blobs.Put(ctx, KeyPendingRecords, []byte("\x00garbage")))

	q := NewPendingQueue(blobs, nil)
	empty, err := q.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	// upserts without a record are dropped
	require.NoError(t, blobs.Put(ctx, KeyPendingRecords,
		[]byte(`[{"op":"upsert","id":"6f1c2a9e-3b4d-4e5f-8a7b-1c2d3e4f5a6b","enqueued_at":"2025-03-01T12:00:00Z"}]`)))
	empty, err = q.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	// the queue recovers on the next write
	require.NoError(t, q.Enqueue(ctx, UpsertOp(fixtureR1, t0)))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPendingQueue_BackendErrorsAreReturned(t *testing.T) {
	q := NewPendingQueue(failingBlobStore{}, nil)
	_, err := q.Drain(context.Background())
	require.ErrorIs(t, err, errTest)
	require.ErrorIs(t, q.Enqueue(context.Background(), UpsertOp(fixtureR1, t0)), errTest)
}

func TestPendingQueue_GoldenFormat(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	q := NewPendingQueue(blobs, nil)
	require.NoError(t, q.Enqueue(ctx,
		UpsertOp(fixtureR1, t0.Add(time.Second)),
		DeleteOp(fixtureR2.ID, t0.Add(2*time.Second)),
	))

	data, ok, err := blobs.Get(ctx, KeyPendingRecords)
	require.NoError(t, err)
	require.True(t, ok)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, KeyPendingRecords, data)
}
