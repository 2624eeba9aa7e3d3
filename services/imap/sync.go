package imap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"k8s.io/utils/clock"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	DEFAULT_SYNC_DAYS = 30
	DEFAULT_FOLDER    = "INBOX"

	syncKindBackfill    = "backfill"
	syncKindIncremental = "incremental"
)

type SyncResult struct {
	Skipped  bool
	Found    int
	Pipeline interfaces.PipelineResult
}

// SyncCoordinator runs backfill and incremental passes for one account. At most one
// pass runs at a time; a pass requested while another is in flight is skipped.
type SyncCoordinator struct {
	account  *models.Account
	conn     interfaces.MailboxConnection
	pipeline interfaces.IngestionPipeline
	folder   string
	syncDays int
	clock    clock.PassiveClock
	log      logger.Logger
	// optional; nil keeps sync state in memory only
	states interfaces.SyncStateRepository

	lock sync.Mutex

	statsMu    sync.RWMutex
	lastSyncAt *time.Time
}

func NewSyncCoordinator(account *models.Account, conn interfaces.MailboxConnection, pipeline interfaces.IngestionPipeline,
	folder string, syncDays int, clk clock.PassiveClock, log logger.Logger) *SyncCoordinator {
	if folder == "" {
		folder = DEFAULT_FOLDER
	}
	if syncDays <= 0 {
		syncDays = DEFAULT_SYNC_DAYS
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &SyncCoordinator{
		account:  account,
		conn:     conn,
		pipeline: pipeline,
		folder:   folder,
		syncDays: syncDays,
		clock:    clk,
		log:      log,
	}
}

// WithSyncStates persists the outcome of every completed pass.
func (s *SyncCoordinator) WithSyncStates(states interfaces.SyncStateRepository) *SyncCoordinator {
	s.states = states
	return s
}

// RunBackfill pulls every message from the last syncDays days.
func (s *SyncCoordinator) RunBackfill(ctx context.Context) (SyncResult, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = s.backfillSince()
	return s.run(ctx, syncKindBackfill, criteria)
}

// RunIncremental pulls every message without the \Seen flag.
func (s *SyncCoordinator) RunIncremental(ctx context.Context) (SyncResult, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	return s.run(ctx, syncKindIncremental, criteria)
}

func (s *SyncCoordinator) LastSyncAt() *time.Time {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.lastSyncAt
}

func (s *SyncCoordinator) backfillSince() time.Time {
	return s.clock.Now().UTC().AddDate(0, 0, -s.syncDays)
}

func (s *SyncCoordinator) run(ctx context.Context, kind string, criteria *imap.SearchCriteria) (result SyncResult, err error) {
	if !s.lock.TryLock() {
		s.log.Debugf("[%s] %s sync skipped, another sync is in progress", s.account.ID, kind)
		return SyncResult{Skipped: true}, nil
	}
	defer s.lock.Unlock()
	defer func() {
		if r := recover(); r != nil {
			tracing.LogPanic(s.log, r)
			err = fmt.Errorf("[%s] panic during %s sync: %v", s.account.ID, kind, r)
		}
	}()

	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncCoordinator.run")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	tracing.TagAccount(span, s.account.ID)
	span.SetTag("sync.kind", kind)
	span.SetTag("folder.name", s.folder)

	if _, err = s.conn.SelectFolder(ctx, s.folder, true); err != nil {
		tracing.TraceErr(span, err)
		return result, err
	}

	uids, err := s.conn.Search(ctx, criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		return result, err
	}
	span.SetTag("sync.found", len(uids))

	if len(uids) == 0 {
		s.log.Debugf("[%s] %s sync found no messages", s.account.ID, kind)
		s.markSynced(ctx, kind, uids)
		return result, nil
	}
	result.Found = len(uids)

	s.log.Infof("[%s] %s sync found %d messages", s.account.ID, kind, len(uids))

	messages := make(chan *interfaces.RawMessage, FETCH_BUFFER_SIZE)
	fetchErr := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tracing.LogPanic(s.log, r)
				fetchErr <- fmt.Errorf("panic during fetch: %v", r)
			}
		}()
		fetchErr <- s.conn.Fetch(ctx, uids, messages)
	}()

	result.Pipeline = s.pipeline.ProcessStream(ctx, s.account, s.folder, messages)

	if err = <-fetchErr; err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("[%s] %s sync fetch failed after %d messages: %v", s.account.ID, kind, result.Pipeline.Received, err)
		return result, err
	}

	s.markSynced(ctx, kind, uids)
	span.SetTag("sync.indexed", result.Pipeline.Indexed)
	s.log.Infof("[%s] %s sync done: found=%d indexed=%d parseFailed=%d indexFailed=%d notified=%d",
		s.account.ID, kind, result.Found, result.Pipeline.Indexed, result.Pipeline.ParseFailed,
		result.Pipeline.IndexFailed, result.Pipeline.Notified)

	return result, nil
}

func (s *SyncCoordinator) markSynced(ctx context.Context, kind string, uids []uint32) {
	now := s.clock.Now().UTC()
	s.statsMu.Lock()
	s.lastSyncAt = &now
	s.statsMu.Unlock()

	if s.states == nil {
		return
	}
	state := &models.SyncState{
		AccountID:  s.account.ID,
		FolderName: s.folder,
		LastUID:    maxUID(uids),
		LastKind:   kind,
		LastFound:  len(uids),
		LastSync:   now,
	}
	if err := s.states.SaveSyncState(ctx, state); err != nil {
		s.log.Warnf("[%s] Could not save sync state: %v", s.account.ID, err)
	}
}

func maxUID(uids []uint32) uint32 {
	var highest uint32
	for _, uid := range uids {
		if uid > highest {
			highest = uid
		}
	}
	return highest
}
