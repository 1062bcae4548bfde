package colorserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, config *ServiceConfig) (*DocumentService, *MemoryDocumentStore) {
	t.Helper()
	store := NewMemoryDocumentStore()
	store.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return NewDocumentService(store, config, slog.Default()), store
}

func colorDoc(id, hex string) Document {
	return Document{ID: id, Data: json.RawMessage(fmt.Sprintf(`{"hexCode":%q,"timestamp":"2025-03-01T12:00:00Z"}`, hex))}
}

func TestBatchSet_CommitsAllDocuments(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.BatchSet(ctx, "user", DefaultCollection, &BatchSetRequest{
		Documents: []Document{colorDoc("a", "FF0000"), colorDoc("b", "00FF00")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Committed)
	require.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), resp.CommittedAt)

	list, err := svc.List(ctx, "user", DefaultCollection)
	require.NoError(t, err)
	require.Len(t, list.Documents, 2)
	require.Equal(t, "a", list.Documents[0].ID)
	require.JSONEq(t, string(colorDoc("a", "FF0000").Data), string(list.Documents[0].Data))

	// other users see nothing
	other, err := svc.List(ctx, "other", DefaultCollection)
	require.NoError(t, err)
	require.Empty(t, other.Documents)
}

func TestBatchSet_IsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	req := func() *BatchSetRequest {
		return &BatchSetRequest{Documents: []Document{colorDoc("a", "FF0000")}}
	}

	_, err := svc.BatchSet(ctx, "user", DefaultCollection, req())
	require.NoError(t, err)
	_, err = svc.BatchSet(ctx, "user", DefaultCollection, req())
	require.NoError(t, err)

	list, err := svc.List(ctx, "user", DefaultCollection)
	require.NoError(t, err)
	require.Len(t, list.Documents, 1)
}

func TestBatchSet_RejectsInvalidInput(t *testing.T) {
	svc, store := newTestService(t, &ServiceConfig{
		Collections:     []string{DefaultCollection},
		MaxBatchSize:    2,
		MaxPayloadBytes: 128,
	})
	ctx := context.Background()

	testCases := []struct {
		name       string
		collection string
		docs       []Document
		want       error
	}{
		{"empty batch", DefaultCollection, nil, ErrBadPayload},
		{"unregistered collection", "other", []Document{colorDoc("a", "FF0000")}, ErrUnregisteredCollection},
		{"invalid collection name", "bad-name", []Document{colorDoc("a", "FF0000")}, ErrBadPayload},
		{"too many documents", DefaultCollection, []Document{colorDoc("a", "1"), colorDoc("b", "2"), colorDoc("c", "3")}, ErrBatchTooLarge},
		{"duplicate ids", DefaultCollection, []Document{colorDoc("a", "1"), colorDoc(" a ", "2")}, ErrBadPayload},
		{"id with slash", DefaultCollection, []Document{colorDoc("a/b", "1")}, ErrBadPayload},
		{"data not an object", DefaultCollection, []Document{{ID: "a", Data: json.RawMessage(`[1,2]`)}}, ErrBadPayload},
		{"missing data", DefaultCollection, []Document{{ID: "a"}}, ErrBadPayload},
		{"payload too large", DefaultCollection, []Document{{ID: "a", Data: json.RawMessage(fmt.Sprintf(`{"x":%q}`, strings.Repeat("x", 200)))}}, ErrBadPayload},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.BatchSet(ctx, "user", tc.collection, &BatchSetRequest{Documents: tc.docs})
			require.ErrorIs(t, err, tc.want)
		})
	}

	docs, err := store.List(ctx, "user", DefaultCollection)
	require.NoError(t, err)
	require.Empty(t, docs, "rejected batches must not write anything")
}

func TestDelete_AbsentDocumentIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.BatchSet(ctx, "user", DefaultCollection, &BatchSetRequest{Documents: []Document{colorDoc("a", "FF0000")}})
	require.NoError(t, err)

	resp, err := svc.Delete(ctx, "user", DefaultCollection, "a")
	require.NoError(t, err)
	require.True(t, resp.Deleted)

	resp, err = svc.Delete(ctx, "user", DefaultCollection, "a")
	require.NoError(t, err)
	require.False(t, resp.Deleted)
	require.Equal(t, "a", resp.ID)
}

func TestService_StageMetrics(t *testing.T) {
	var mu sync.Mutex
	var timings []StageTiming
	svc, _ := newTestService(t, &ServiceConfig{
		Collections: []string{DefaultCollection},
		StageMetrics: StageMetricsRecorderFunc(func(_ context.Context, timing StageTiming) {
			mu.Lock()
			defer mu.Unlock()
			timings = append(timings, timing)
		}),
	})

	_, err := svc.BatchSet(context.Background(), "user", DefaultCollection, &BatchSetRequest{Documents: []Document{colorDoc("a", "FF0000")}})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	stages := make([]string, 0, len(timings))
	for _, tm := range timings {
		require.Equal(t, MetricsOpBatchSet, tm.Operation)
		require.Equal(t, 1, tm.Documents)
		require.False(t, tm.Failed)
		stages = append(stages, tm.Stage)
	}
	require.Equal(t, []string{MetricsStageValidate, MetricsStageStore, MetricsStageTotal}, stages)
}

func TestService_Closed(t *testing.T) {
	svc, _ := newTestService(t, nil)
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	_, err := svc.List(context.Background(), "user", DefaultCollection)
	require.True(t, errors.Is(err, ErrServiceClosed))
	require.Equal(t, "closed", svc.Status().Status)
}

func TestService_Status(t *testing.T) {
	svc, _ := newTestService(t, &ServiceConfig{AppName: "test-app", Collections: []string{"b", "a"}})
	st := svc.Status()
	require.Equal(t, "healthy", st.Status)
	require.Equal(t, APIVersion, st.Version)
	require.Equal(t, "test-app", st.AppName)
	require.Equal(t, BackendMemory, st.Backend)
	require.Equal(t, []string{"a", "b"}, st.Collections)
}
