package imap

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const DEFAULT_SHUTDOWN_TIMEOUT = 10 * time.Second

// IMAPService supervises one worker per account. The mutex guards membership of the
// worker map only; workers never wait on each other.
type IMAPService struct {
	cfg      *config.SyncConfig
	dial     interfaces.MailboxDialer
	pipeline interfaces.IngestionPipeline
	clock    clock.WithTicker
	log      logger.Logger

	syncStates interfaces.SyncStateRepository

	ctx    context.Context
	cancel context.CancelFunc

	workersMutex sync.RWMutex
	workers      map[string]*accountWorker
}

type Option func(*IMAPService)

// WithClock replaces the wall clock driving IDLE renewal and backfill windows.
func WithClock(clk clock.WithTicker) Option {
	return func(s *IMAPService) {
		s.clock = clk
	}
}

// WithSyncStateRepository persists each account's last completed sync pass.
func WithSyncStateRepository(states interfaces.SyncStateRepository) Option {
	return func(s *IMAPService) {
		s.syncStates = states
	}
}

func NewIMAPService(cfg *config.SyncConfig, dial interfaces.MailboxDialer, pipeline interfaces.IngestionPipeline,
	log logger.Logger, opts ...Option) *IMAPService {
	if cfg == nil {
		cfg = &config.SyncConfig{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &IMAPService{
		cfg:      cfg,
		dial:     dial,
		pipeline: pipeline,
		clock:    clock.RealClock{},
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		workers:  make(map[string]*accountWorker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConnectAll dials every account concurrently and returns once each dial has either
// succeeded (its worker is running) or failed (its status records the error).
func (s *IMAPService) ConnectAll(ctx context.Context, accounts []*models.Account) {
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.ConnectAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.Int("account_count", len(accounts)))

	var wg sync.WaitGroup
	for _, account := range accounts {
		if account == nil {
			continue
		}
		worker := s.register(account)
		if worker.isRunning() {
			s.log.Debugf("[%s] Already connected, skipping", account.ID)
			continue
		}

		wg.Add(1)
		go func(w *accountWorker) {
			defer wg.Done()
			defer tracing.RecoverAndLogToJaeger(s.log)
			if err := s.connect(ctx, w); err != nil {
				s.log.Errorf("[%s] Failed to connect: %v", w.account.ID, err)
			}
		}(worker)
	}
	wg.Wait()

	connected := 0
	for _, status := range s.Status() {
		if status.Connected {
			connected++
		}
	}
	span.LogFields(tracingLog.Int("connected_count", connected))
	s.log.Infof("Connected %d of %d accounts", connected, len(accounts))
}

func (s *IMAPService) register(account *models.Account) *accountWorker {
	s.workersMutex.Lock()
	defer s.workersMutex.Unlock()

	if w, ok := s.workers[account.ID]; ok {
		return w
	}
	w := newAccountWorker(account, s.log)
	s.workers[account.ID] = w
	return w
}

func (s *IMAPService) connect(ctx context.Context, w *accountWorker) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.connect")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	tracing.TagAccount(span, w.account.ID)

	w.setState(enum.ConnectionConnecting)

	timeout := s.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DEFAULT_CONNECT_TIMEOUT
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stopDial := context.AfterFunc(s.ctx, cancel)
	defer stopDial()

	conn, err := s.dial(dialCtx, w.account)
	if err != nil {
		tracing.TraceErr(span, err)
		w.fail(err)
		return err
	}

	// DisconnectAll cancels s.ctx under the write lock, so no worker starts after it.
	s.workersMutex.RLock()
	defer s.workersMutex.RUnlock()
	if s.ctx.Err() != nil {
		err = mailerrors.NewConnectionError(w.account.ID, s.ctx.Err(), "service is shutting down")
		tracing.TraceErr(span, err)
		if closeErr := conn.Close(); closeErr != nil {
			s.log.Warnf("[%s] Error closing connection: %v", w.account.ID, closeErr)
		}
		w.fail(err)
		return err
	}

	w.start(s.ctx, conn, s)
	s.log.Infof("[%s] Connected as %s", w.account.ID, w.account.Username)
	return nil
}

// Reconnect stops the account's worker if it is running and dials again.
func (s *IMAPService) Reconnect(ctx context.Context, accountID string) error {
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.Reconnect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	w, ok := s.worker(accountID)
	if !ok {
		return errors.Wrap(mailerrors.ErrAccountNotFound, accountID)
	}

	stopCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout())
	w.stop(stopCtx)
	cancel()

	if err := s.connect(ctx, w); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// TriggerSync asks the account's worker for an incremental sync of unseen mail.
func (s *IMAPService) TriggerSync(accountID string) error {
	w, ok := s.worker(accountID)
	if !ok {
		return errors.Wrap(mailerrors.ErrAccountNotFound, accountID)
	}
	if !w.requestSync() {
		return mailerrors.NewConnectionError(accountID, nil, "account is not connected")
	}
	return nil
}

// TriggerSyncAll returns the number of accounts a sync was queued for.
func (s *IMAPService) TriggerSyncAll() int {
	s.workersMutex.RLock()
	workers := make([]*accountWorker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.workersMutex.RUnlock()

	queued := 0
	for _, w := range workers {
		if w.requestSync() {
			queued++
		}
	}
	return queued
}

func (s *IMAPService) Status() []interfaces.AccountStatus {
	s.workersMutex.RLock()
	statuses := make([]interfaces.AccountStatus, 0, len(s.workers))
	for _, w := range s.workers {
		statuses = append(statuses, w.status())
	}
	s.workersMutex.RUnlock()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].AccountID < statuses[j].AccountID
	})
	return statuses
}

// DisconnectAll stops every worker and closes its connection. It waits until ctx is
// done, or DEFAULT_SHUTDOWN_TIMEOUT when ctx has no deadline, and then returns
// regardless. Dials still in flight are abandoned; the service does not connect again.
func (s *IMAPService) DisconnectAll(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.DisconnectAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.workersMutex.Lock()
	s.cancel()
	workers := s.workers
	s.workers = make(map[string]*accountWorker)
	s.workersMutex.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout())
		defer cancel()
	}

	s.log.Infof("Disconnecting %d accounts", len(workers))

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *accountWorker) {
			defer wg.Done()
			defer tracing.RecoverAndLogToJaeger(s.log)
			w.stop(ctx)
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		span.SetTag("timeout", true)
		s.log.Warnf("Timed out waiting for accounts to disconnect")
		return errors.Wrap(mailerrors.ErrConnectionTimeout, "disconnect")
	}

	s.log.Info("All accounts disconnected")
	return nil
}

func (s *IMAPService) worker(accountID string) (*accountWorker, bool) {
	s.workersMutex.RLock()
	defer s.workersMutex.RUnlock()
	w, ok := s.workers[accountID]
	return w, ok
}

func (s *IMAPService) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return DEFAULT_SHUTDOWN_TIMEOUT
}
