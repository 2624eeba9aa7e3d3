package imap

import (
	"context"
	"sync"

	"github.com/emersion/go-imap"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
)

func newTestLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "error", Encoder: "console"})
	l.InitLogger()
	return l
}

func newTestAccount(id string) *models.Account {
	return &models.Account{
		ID:       id,
		Host:     "imap.example.com",
		Port:     993,
		Username: id + "@example.com",
		Password: "secret",
		UseTLS:   true,
	}
}

// fakeConnection is an in-memory MailboxConnection. Search returns every stored UID
// unless searchFn is set.
type fakeConnection struct {
	mu sync.Mutex

	messages map[uint32][]byte
	uids     []uint32

	selectErr error
	searchErr error
	fetchErr  error
	idleErr   error
	searchFn  func(criteria *imap.SearchCriteria) ([]uint32, error)

	// searchGate blocks Search until closed; searchEntered is signalled first.
	searchGate    chan struct{}
	searchEntered chan struct{}

	selectCalls int
	searchCalls int
	fetchCalls  int
	idleCalls   int
	closeCalls  int
	criteria    []*imap.SearchCriteria

	idling  bool
	newMail chan struct{}

	// done closes on Close or when the server drops the session
	done     chan struct{}
	doneOnce sync.Once
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		messages: make(map[uint32][]byte),
		newMail:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// drop ends the session from the server side.
func (f *fakeConnection) drop() {
	f.doneOnce.Do(func() { close(f.done) })
}

func (f *fakeConnection) addMessage(uid uint32, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[uid] = body
	f.uids = append(f.uids, uid)
}

func (f *fakeConnection) deliverNewMail() {
	select {
	case f.newMail <- struct{}{}:
	default:
	}
}

func (f *fakeConnection) SelectFolder(_ context.Context, name string, _ bool) (*imap.MailboxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectCalls++
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	status := imap.NewMailboxStatus(name, nil)
	status.Messages = uint32(len(f.uids))
	return status, nil
}

func (f *fakeConnection) Search(_ context.Context, criteria *imap.SearchCriteria) ([]uint32, error) {
	f.mu.Lock()
	f.searchCalls++
	f.criteria = append(f.criteria, criteria)
	gate, entered := f.searchGate, f.searchEntered
	searchFn, searchErr := f.searchFn, f.searchErr
	uids := append([]uint32(nil), f.uids...)
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if searchFn != nil {
		return searchFn(criteria)
	}
	if searchErr != nil {
		return nil, searchErr
	}
	return uids, nil
}

func (f *fakeConnection) Fetch(ctx context.Context, uids []uint32, messages chan<- *interfaces.RawMessage) error {
	defer close(messages)

	f.mu.Lock()
	f.fetchCalls++
	fetchErr := f.fetchErr
	bodies := make([]*interfaces.RawMessage, 0, len(uids))
	for _, uid := range uids {
		bodies = append(bodies, &interfaces.RawMessage{UID: uid, Body: f.messages[uid]})
	}
	f.mu.Unlock()

	for _, raw := range bodies {
		select {
		case messages <- raw:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fetchErr
}

func (f *fakeConnection) Idle(_ context.Context, stop <-chan struct{}) error {
	f.mu.Lock()
	f.idleCalls++
	idleErr := f.idleErr
	f.idleErr = nil
	f.idling = idleErr == nil
	f.mu.Unlock()

	if idleErr != nil {
		return idleErr
	}
	<-stop

	f.mu.Lock()
	f.idling = false
	f.mu.Unlock()
	return nil
}

func (f *fakeConnection) NewMail() <-chan struct{} {
	return f.newMail
}

func (f *fakeConnection) Done() <-chan struct{} {
	return f.done
}

func (f *fakeConnection) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.drop()
	return nil
}

func (f *fakeConnection) IdleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idleCalls
}

func (f *fakeConnection) IsIdling() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idling
}

func (f *fakeConnection) SearchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakeConnection) SelectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selectCalls
}

func (f *fakeConnection) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *fakeConnection) CloseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

// countingPipeline drains the stream and records what it saw.
type countingPipeline struct {
	mu       sync.Mutex
	uids     []uint32
	panicMsg string
}

func (p *countingPipeline) ProcessStream(ctx context.Context, account *models.Account, folder string, messages <-chan *interfaces.RawMessage) interfaces.PipelineResult {
	result := interfaces.PipelineResult{}
	for raw := range messages {
		result.Received++
		if p.panicMsg != "" {
			panic(p.panicMsg)
		}
		p.mu.Lock()
		p.uids = append(p.uids, raw.UID)
		p.mu.Unlock()
		result.Indexed++
	}
	return result
}

func (p *countingPipeline) ProcessMessage(ctx context.Context, account *models.Account, folder string, raw *interfaces.RawMessage) (*models.Email, error) {
	return nil, nil
}

func (p *countingPipeline) UIDs() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint32(nil), p.uids...)
}

// fakeDialer hands out prepared connections, or fails for accounts in failures.
// Connections queued for an account are handed out first, one per dial.
type fakeDialer struct {
	mu          sync.Mutex
	connections map[string]*fakeConnection
	queued      map[string][]*fakeConnection
	failures    map[string]error
	dials       map[string]int

	// dialGate blocks Dial until closed; dialEntered is signalled first.
	dialGate    chan struct{}
	dialEntered chan struct{}
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		connections: make(map[string]*fakeConnection),
		queued:      make(map[string][]*fakeConnection),
		failures:    make(map[string]error),
		dials:       make(map[string]int),
	}
}

func (d *fakeDialer) Dial(_ context.Context, account *models.Account) (interfaces.MailboxConnection, error) {
	d.mu.Lock()
	gate, entered := d.dialGate, d.dialEntered
	d.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[account.ID]++
	if err, ok := d.failures[account.ID]; ok {
		return nil, err
	}
	if queue := d.queued[account.ID]; len(queue) > 0 {
		d.queued[account.ID] = queue[1:]
		return queue[0], nil
	}
	conn, ok := d.connections[account.ID]
	if !ok {
		conn = newFakeConnection()
		d.connections[account.ID] = conn
	}
	return conn, nil
}

func (d *fakeDialer) connection(accountID string) *fakeConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	conn, ok := d.connections[accountID]
	if !ok {
		conn = newFakeConnection()
		d.connections[accountID] = conn
	}
	return conn
}

func (d *fakeDialer) queue(accountID string, conns ...*fakeConnection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued[accountID] = append(d.queued[accountID], conns...)
}

func (d *fakeDialer) Dials(accountID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[accountID]
}

type recordingSyncStates struct {
	mu      sync.Mutex
	saved   []*models.SyncState
	saveErr error
}

func (r *recordingSyncStates) GetSyncState(_ context.Context, _, _ string) (*models.SyncState, error) {
	return nil, nil
}

func (r *recordingSyncStates) SaveSyncState(_ context.Context, state *models.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, state)
	return r.saveErr
}

func (r *recordingSyncStates) ListSyncStates(_ context.Context) ([]*models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.SyncState(nil), r.saved...), nil
}
