package cron

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/customeros/mailsync/interfaces"
	cron_config "github.com/customeros/mailsync/internal/cron/config"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const AppSource = "mailsync-cron"

const (
	JobHeartbeat   = "heartbeat"
	JobUnseenSweep = "unseen_sweep"
)

type CronManager struct {
	cfg      *cron_config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	imap     interfaces.IMAPService
}

func NewCronManager(cfg *cron_config.Config, log logger.Logger, imap interfaces.IMAPService) *CronManager {
	if cfg == nil {
		cfg = &cron_config.Config{}
	}
	return &CronManager{
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		imap:   imap,
	}
}

// Start registers every job with a non-empty schedule and starts the scheduler.
func (cm *CronManager) Start() error {
	cm.log.Info("Starting cron manager")
	c := cronv3.New(
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

// Stop waits for running jobs to finish. Safe to call more than once.
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			<-cm.cron.Stop().Done()
		}
		close(cm.stopCh)
	})
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	if cm.cfg.CronScheduleHeartbeat != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.heartbeat()
		})
		if err != nil {
			return errors.Wrap(err, "could not add heartbeat cron job")
		}
		cm.jobIDs[JobHeartbeat] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cm.cfg.CronScheduleHeartbeat)
	}

	if cm.cfg.CronScheduleUnseenSweep != "" && cm.imap != nil {
		id, err := c.AddFunc(cm.cfg.CronScheduleUnseenSweep, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.sweepUnseen()
		})
		if err != nil {
			return errors.Wrap(err, "could not add unseen sweep cron job")
		}
		cm.jobIDs[JobUnseenSweep] = id
		cm.log.Infof("Registered unseen sweep job with schedule: %s", cm.cfg.CronScheduleUnseenSweep)
	}

	return nil
}

func (cm *CronManager) heartbeat() {
	host, _ := os.Hostname()
	if host == "" {
		host = "local"
	}

	connected, total := 0, 0
	if cm.imap != nil {
		for _, status := range cm.imap.Status() {
			total++
			if status.Connected {
				connected++
			}
		}
	}
	cm.log.Infof("Cron heartbeat from %s: %d/%d accounts connected", host, connected, total)
}

func (cm *CronManager) sweepUnseen() {
	ctx := utils.SetAppSourceInContext(context.Background(), AppSource)
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.sweepUnseen")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagComponentCronJob(span)

	queued := cm.imap.TriggerSyncAll()
	span.SetTag("accounts.queued", queued)
	cm.log.Infof("Unseen sweep queued on %d accounts", queued)
}
