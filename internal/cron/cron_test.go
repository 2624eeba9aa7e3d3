package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/interfaces"
	cron_config "github.com/customeros/mailsync/internal/cron/config"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
)

type mockIMAPService struct {
	mock.Mock
}

func (m *mockIMAPService) ConnectAll(ctx context.Context, accounts []*models.Account) {
	m.Called(ctx, accounts)
}

func (m *mockIMAPService) Reconnect(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockIMAPService) TriggerSync(accountID string) error {
	return m.Called(accountID).Error(0)
}

func (m *mockIMAPService) TriggerSyncAll() int {
	return m.Called().Int(0)
}

func (m *mockIMAPService) Status() []interfaces.AccountStatus {
	return m.Called().Get(0).([]interfaces.AccountStatus)
}

func (m *mockIMAPService) DisconnectAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func defaultConfig() *cron_config.Config {
	return &cron_config.Config{
		CronScheduleHeartbeat:   "0 * * * * *",
		CronScheduleUnseenSweep: "0 */10 * * * *",
	}
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	log := getLogger()
	imap := &mockIMAPService{}

	// Act
	cm := NewCronManager(defaultConfig(), log, imap)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, imap, cm.imap)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(defaultConfig(), getLogger(), &mockIMAPService{})

	err := cm.registerJobs(cronv3.New(cronv3.WithSeconds()))

	require.NoError(t, err)
	assert.Len(t, cm.jobIDs, 2)
	assert.Contains(t, cm.jobIDs, JobHeartbeat)
	assert.Contains(t, cm.jobIDs, JobUnseenSweep)
}

func TestCronManager_RegisterJobsSkipsEmptySchedules(t *testing.T) {
	cm := NewCronManager(&cron_config.Config{CronScheduleUnseenSweep: "0 */10 * * * *"}, getLogger(), nil)

	err := cm.registerJobs(cronv3.New(cronv3.WithSeconds()))

	require.NoError(t, err)
	assert.Empty(t, cm.jobIDs)
}

func TestCronManager_InvalidSchedule(t *testing.T) {
	cm := NewCronManager(&cron_config.Config{CronScheduleUnseenSweep: "every ten minutes"}, getLogger(), &mockIMAPService{})

	err := cm.registerJobs(cronv3.New(cronv3.WithSeconds()))

	assert.Error(t, err)
}

func TestCronManager_SweepUnseenTriggersEveryAccount(t *testing.T) {
	imap := &mockIMAPService{}
	imap.On("TriggerSyncAll").Return(2)
	cm := NewCronManager(defaultConfig(), getLogger(), imap)

	cm.sweepUnseen()

	imap.AssertNumberOfCalls(t, "TriggerSyncAll", 1)
}

func TestCronManager_Heartbeat(t *testing.T) {
	imap := &mockIMAPService{}
	imap.On("Status").Return([]interfaces.AccountStatus{
		{AccountID: "account_1", Connected: true},
		{AccountID: "account_2", Connected: false},
	})
	cm := NewCronManager(defaultConfig(), getLogger(), imap)

	cm.heartbeat()

	imap.AssertExpectations(t)
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cm := NewCronManager(defaultConfig(), getLogger(), &mockIMAPService{})
	require.NoError(t, cm.Start())

	// Act
	cm.Stop()
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
