package imap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	mailerrors "github.com/customeros/mailsync/internal/errors"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestCoordinator(conn *fakeConnection, pipeline *countingPipeline) *SyncCoordinator {
	return NewSyncCoordinator(newTestAccount("account_1"), conn, pipeline, "INBOX", 30,
		clocktesting.NewFakeClock(testNow), newTestLogger())
}

func TestSyncCoordinator_BackfillSearchesSinceWindow(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(1, []byte("a"))
	conn.addMessage(2, []byte("b"))
	pipeline := &countingPipeline{}

	result, err := newTestCoordinator(conn, pipeline).RunBackfill(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Pipeline.Indexed)
	assert.ElementsMatch(t, []uint32{1, 2}, pipeline.UIDs())

	require.Len(t, conn.criteria, 1)
	assert.Equal(t, testNow.AddDate(0, 0, -30), conn.criteria[0].Since)
	assert.Empty(t, conn.criteria[0].WithoutFlags)
}

func TestSyncCoordinator_IncrementalSearchesUnseen(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(7, []byte("unseen"))
	pipeline := &countingPipeline{}

	result, err := newTestCoordinator(conn, pipeline).RunIncremental(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Found)
	require.Len(t, conn.criteria, 1)
	assert.Equal(t, []string{imap.SeenFlag}, conn.criteria[0].WithoutFlags)
	assert.True(t, conn.criteria[0].Since.IsZero())
}

func TestSyncCoordinator_EmptyMailbox(t *testing.T) {
	conn := newFakeConnection()
	pipeline := &countingPipeline{}
	coordinator := newTestCoordinator(conn, pipeline)

	result, err := coordinator.RunBackfill(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, result)
	assert.Equal(t, 0, conn.FetchCalls())
	assert.Empty(t, pipeline.UIDs())
	require.NotNil(t, coordinator.LastSyncAt())
	assert.Equal(t, testNow, *coordinator.LastSyncAt())
}

func TestSyncCoordinator_SecondCallSkippedWhileSyncRuns(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(1, []byte("a"))
	conn.searchGate = make(chan struct{})
	conn.searchEntered = make(chan struct{}, 1)
	coordinator := newTestCoordinator(conn, &countingPipeline{})

	firstDone := make(chan SyncResult, 1)
	go func() {
		result, _ := coordinator.RunBackfill(context.Background())
		firstDone <- result
	}()

	select {
	case <-conn.searchEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("first sync never reached search")
	}

	second, err := coordinator.RunIncremental(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, 1, conn.SelectCalls())
	assert.Equal(t, 1, conn.SearchCalls())

	close(conn.searchGate)
	select {
	case first := <-firstDone:
		assert.False(t, first.Skipped)
		assert.Equal(t, 1, first.Found)
	case <-time.After(2 * time.Second):
		t.Fatal("first sync never finished")
	}
}

func TestSyncCoordinator_ReleasesLockAfterFolderError(t *testing.T) {
	conn := newFakeConnection()
	conn.selectErr = mailerrors.NewFolderError("account_1", errors.New("NO such mailbox"), "failed to select INBOX")
	coordinator := newTestCoordinator(conn, &countingPipeline{})

	_, err := coordinator.RunBackfill(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mailerrors.ErrFolder))

	conn.mu.Lock()
	conn.selectErr = nil
	conn.mu.Unlock()

	result, err := coordinator.RunIncremental(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

func TestSyncCoordinator_ReleasesLockAfterPanic(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(1, []byte("a"))
	pipeline := &countingPipeline{panicMsg: "boom"}
	coordinator := newTestCoordinator(conn, pipeline)

	_, err := coordinator.RunBackfill(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	pipeline.panicMsg = ""
	result, err := coordinator.RunIncremental(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Pipeline.Indexed)
}

func TestSyncCoordinator_FetchErrorReported(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(1, []byte("a"))
	conn.fetchErr = errors.New("connection reset")
	coordinator := newTestCoordinator(conn, &countingPipeline{})

	result, err := coordinator.RunIncremental(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, result.Pipeline.Received)
	assert.Nil(t, coordinator.LastSyncAt())
}

func TestSyncCoordinator_RecordsSyncState(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(3, []byte("a"))
	conn.addMessage(9, []byte("b"))
	states := &recordingSyncStates{}
	coordinator := newTestCoordinator(conn, &countingPipeline{}).WithSyncStates(states)

	_, err := coordinator.RunBackfill(context.Background())
	require.NoError(t, err)

	saved, _ := states.ListSyncStates(context.Background())
	require.Len(t, saved, 1)
	assert.Equal(t, "account_1", saved[0].AccountID)
	assert.Equal(t, "INBOX", saved[0].FolderName)
	assert.Equal(t, uint32(9), saved[0].LastUID)
	assert.Equal(t, syncKindBackfill, saved[0].LastKind)
	assert.Equal(t, 2, saved[0].LastFound)
	assert.Equal(t, testNow, saved[0].LastSync)
}

func TestSyncCoordinator_SyncStateFailureIsNotFatal(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(1, []byte("a"))
	states := &recordingSyncStates{saveErr: errors.New("db down")}
	coordinator := newTestCoordinator(conn, &countingPipeline{}).WithSyncStates(states)

	result, err := coordinator.RunIncremental(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Pipeline.Indexed)
	assert.NotNil(t, coordinator.LastSyncAt())
}

func TestSyncCoordinator_FetchErrorSkipsSyncState(t *testing.T) {
	conn := newFakeConnection()
	conn.addMessage(1, []byte("a"))
	conn.fetchErr = errors.New("connection reset")
	states := &recordingSyncStates{}
	coordinator := newTestCoordinator(conn, &countingPipeline{}).WithSyncStates(states)

	_, err := coordinator.RunIncremental(context.Background())

	require.Error(t, err)
	saved, _ := states.ListSyncStates(context.Background())
	assert.Empty(t, saved)
}
