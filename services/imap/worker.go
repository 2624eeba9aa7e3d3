package imap

import (
	"context"
	"sync"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

// accountWorker owns everything that belongs to one account: its connection, its
// sync lock and its push loop. Nothing here is shared with other accounts.
//
// generation advances on every start and stop. A goroutine only writes state for the
// generation it was started with, so a worker that outlives a reconnect cannot touch
// the session that replaced it.
type accountWorker struct {
	account *models.Account
	log     logger.Logger

	conn   interfaces.MailboxConnection
	syncer *SyncCoordinator
	push   *pushSupervisor
	sweep  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.RWMutex
	generation uint64
	state      enum.ConnectionState
	lastError  string
}

func newAccountWorker(account *models.Account, log logger.Logger) *accountWorker {
	return &accountWorker{
		account: account,
		log:     log,
		state:   enum.ConnectionDisconnected,
	}
}

// start wires the session's collaborators and launches the worker goroutine.
func (w *accountWorker) start(parent context.Context, conn interfaces.MailboxConnection, s *IMAPService) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	w.mu.Lock()
	w.generation++
	generation := w.generation
	setState := func(state enum.ConnectionState) {
		w.setStateFor(generation, state)
	}

	w.conn = conn
	w.sweep = make(chan struct{}, 1)
	w.syncer = NewSyncCoordinator(w.account, conn, s.pipeline, s.cfg.Folder, s.cfg.SyncDays, s.clock, w.log).
		WithSyncStates(s.syncStates)
	w.push = newPushSupervisor(w.account, conn, w.syncer, s.cfg.Folder, s.clock, w.log, w.sweep, setState)
	w.cancel = cancel
	w.done = done
	w.state = enum.ConnectionReady
	w.lastError = ""
	syncer, push := w.syncer, w.push
	w.mu.Unlock()

	go w.run(ctx, generation, conn, syncer, push, done)
}

func (w *accountWorker) run(ctx context.Context, generation uint64, conn interfaces.MailboxConnection,
	syncer *SyncCoordinator, push *pushSupervisor, done chan struct{}) {
	defer close(done)
	defer w.closeConnection(generation, conn)
	defer tracing.RecoverAndLogToJaeger(w.log)

	w.setStateFor(generation, enum.ConnectionSyncing)
	result, err := syncer.RunBackfill(ctx)
	w.setStateFor(generation, enum.ConnectionReady)
	if err != nil {
		w.log.Errorf("[%s] Backfill failed: %v", w.account.ID, err)
		w.recordError(generation, err)
	} else {
		w.log.Infof("[%s] Backfill complete, %d of %d messages indexed", w.account.ID, result.Pipeline.Indexed, result.Found)
	}

	if ctx.Err() != nil {
		return
	}

	if err := push.run(ctx); err != nil {
		w.log.Errorf("[%s] Push mode stopped: %v", w.account.ID, err)
		w.failFor(generation, err)
	}
}

// requestSync enqueues a sweep. Requests coalesce while one is pending.
func (w *accountWorker) requestSync() bool {
	w.mu.RLock()
	sweep := w.sweep
	connected := w.state.IsConnected()
	w.mu.RUnlock()

	if sweep == nil || !connected {
		return false
	}
	select {
	case sweep <- struct{}{}:
	default:
	}
	return true
}

// stop cancels the worker and waits for it, bounded by ctx. A worker that does not
// exit in time has its connection closed from here and is left to finish on its own.
func (w *accountWorker) stop(ctx context.Context) {
	w.mu.Lock()
	cancel, done, conn := w.cancel, w.done, w.conn
	w.generation++
	w.cancel, w.done, w.conn = nil, nil, nil
	w.state = enum.ConnectionDisconnected
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		w.log.Warnf("[%s] Worker did not stop in time, forcing connection close", w.account.ID)
		if err := conn.Close(); err != nil {
			w.log.Warnf("[%s] Error closing connection: %v", w.account.ID, err)
		}
	}
}

// closeConnection closes the connection the worker was started with, never a newer one.
func (w *accountWorker) closeConnection(generation uint64, conn interfaces.MailboxConnection) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		w.log.Warnf("[%s] Error closing connection: %v", w.account.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if generation == w.generation && w.state != enum.ConnectionFailed {
		w.state = enum.ConnectionDisconnected
	}
}

// setState writes the state of the current session.
func (w *accountWorker) setState(state enum.ConnectionState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applyState(state)
}

func (w *accountWorker) setStateFor(generation uint64, state enum.ConnectionState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if generation != w.generation {
		return
	}
	w.applyState(state)
}

func (w *accountWorker) applyState(state enum.ConnectionState) {
	// a failed worker stays failed until reconnected
	if w.state == enum.ConnectionFailed && state != enum.ConnectionConnecting && state != enum.ConnectionDisconnected {
		return
	}
	w.state = state
}

func (w *accountWorker) recordError(generation uint64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if generation != w.generation {
		return
	}
	w.lastError = err.Error()
}

// fail marks the current session failed.
func (w *accountWorker) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = enum.ConnectionFailed
	w.lastError = err.Error()
}

func (w *accountWorker) failFor(generation uint64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if generation != w.generation {
		return
	}
	w.state = enum.ConnectionFailed
	w.lastError = err.Error()
}

func (w *accountWorker) isRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *accountWorker) status() interfaces.AccountStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := interfaces.AccountStatus{
		AccountID: w.account.ID,
		Username:  w.account.Username,
		Host:      w.account.Host,
		Connected: w.state.IsConnected(),
		State:     w.state,
		LastError: w.lastError,
	}
	if w.push != nil {
		status.Renewals = w.push.Renewals()
	}
	if w.syncer != nil {
		status.LastSyncAt = w.syncer.LastSyncAt()
	}
	return status
}
