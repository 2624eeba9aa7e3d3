package imap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"k8s.io/utils/clock"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	// IDLE_CEILING is how long servers keep an IDLE command alive (RFC 2177).
	IDLE_CEILING = 30 * time.Minute
	// RENEWAL_PERIOD must stay below IDLE_CEILING.
	RENEWAL_PERIOD = 29 * time.Minute

	idleStopTimeout = 30 * time.Second
)

// idleSession is one IDLE command running in its own goroutine.
type idleSession struct {
	stop     chan struct{}
	done     chan error
	stopOnce sync.Once
}

// halt ends the IDLE command and waits for it to return.
func (s *idleSession) halt() error {
	if s == nil {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })

	timer := time.NewTimer(idleStopTimeout)
	defer timer.Stop()
	select {
	case err := <-s.done:
		return err
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

// pushSupervisor keeps one IDLE command armed on the selected folder, renews it before
// the server ceiling and runs an incremental sync when the folder grows.
type pushSupervisor struct {
	account *models.Account
	conn    interfaces.MailboxConnection
	syncer  *SyncCoordinator
	folder  string
	clock   clock.WithTicker
	log     logger.Logger

	sweep    <-chan struct{}
	setState func(enum.ConnectionState)

	renewals      int64
	lastRenewalMu sync.RWMutex
	lastRenewalAt time.Time
}

func newPushSupervisor(account *models.Account, conn interfaces.MailboxConnection, syncer *SyncCoordinator, folder string,
	clk clock.WithTicker, log logger.Logger, sweep <-chan struct{}, setState func(enum.ConnectionState)) *pushSupervisor {
	if folder == "" {
		folder = DEFAULT_FOLDER
	}
	if setState == nil {
		setState = func(enum.ConnectionState) {}
	}
	return &pushSupervisor{
		account:  account,
		conn:     conn,
		syncer:   syncer,
		folder:   folder,
		clock:    clk,
		log:      log,
		sweep:    sweep,
		setState: setState,
	}
}

func (p *pushSupervisor) Renewals() int {
	return int(atomic.LoadInt64(&p.renewals))
}

func (p *pushSupervisor) LastRenewalAt() time.Time {
	p.lastRenewalMu.RLock()
	defer p.lastRenewalMu.RUnlock()
	return p.lastRenewalAt
}

// run blocks until ctx is cancelled or the session ends. Every input arrives on a channel and is handled
// by the single select below, so IDLE is never issued concurrently with a sync.
func (p *pushSupervisor) run(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pushSupervisor.run")
	tracing.TagComponentIMAP(span)
	tracing.TagAccount(span, p.account.ID)
	span.SetTag("folder.name", p.folder)

	if _, err := p.conn.SelectFolder(ctx, p.folder, true); err != nil {
		tracing.TraceErr(span, err)
		span.Finish()
		return err
	}
	span.Finish()

	ticker := p.clock.NewTicker(RENEWAL_PERIOD)
	defer ticker.Stop()

	var idle *idleSession
	rearm := true

	for {
		var idleDone <-chan error
		if rearm {
			idle = p.startIdle(ctx)
			rearm = false
		}
		if idle != nil {
			idleDone = idle.done
		}

		select {
		case <-ctx.Done():
			p.haltIdle(idle)
			return nil

		case <-p.conn.Done():
			p.haltIdle(idle)
			if ctx.Err() != nil {
				return nil
			}
			p.log.Warnf("[%s] Connection closed by server", p.account.ID)
			return mailerrors.NewConnectionError(p.account.ID, nil, "connection closed by server")

		case tick := <-ticker.C():
			p.haltIdle(idle)
			idle, rearm = nil, true
			atomic.AddInt64(&p.renewals, 1)
			p.lastRenewalMu.Lock()
			p.lastRenewalAt = tick
			p.lastRenewalMu.Unlock()
			p.log.Debugf("[%s] IDLE renewed", p.account.ID)

		case <-p.conn.NewMail():
			p.haltIdle(idle)
			idle, rearm = nil, true
			p.syncNow(ctx, "new mail")

		case <-p.sweep:
			p.haltIdle(idle)
			idle, rearm = nil, true
			p.syncNow(ctx, "sweep")

		case err := <-idleDone:
			// left unarmed until the next renewal or signal
			idle = nil
			if err != nil {
				p.log.Warnf("[%s] IDLE ended with error, waiting for next renewal: %v", p.account.ID, err)
			} else {
				p.log.Warnf("[%s] IDLE ended unexpectedly, waiting for next renewal", p.account.ID)
			}
			p.setState(enum.ConnectionReady)
		}
	}
}

func (p *pushSupervisor) startIdle(ctx context.Context) *idleSession {
	session := &idleSession{
		stop: make(chan struct{}),
		done: make(chan error, 1),
	}
	p.setState(enum.ConnectionIdling)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				tracing.LogPanic(p.log, r)
				session.done <- context.Canceled
			}
		}()
		session.done <- p.conn.Idle(ctx, session.stop)
	}()

	return session
}

func (p *pushSupervisor) haltIdle(idle *idleSession) {
	if err := idle.halt(); err != nil {
		p.log.Warnf("[%s] Error stopping IDLE: %v", p.account.ID, err)
	}
	p.setState(enum.ConnectionReady)
}

func (p *pushSupervisor) syncNow(ctx context.Context, reason string) {
	p.setState(enum.ConnectionSyncing)
	defer p.setState(enum.ConnectionReady)

	p.log.Debugf("[%s] Running incremental sync (%s)", p.account.ID, reason)
	if _, err := p.syncer.RunIncremental(ctx); err != nil {
		p.log.Errorf("[%s] Incremental sync (%s) failed: %v", p.account.ID, reason, err)
	}
}
