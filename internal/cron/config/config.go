package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Unseen mail sweep across connected accounts, every 10 minutes
	CronScheduleUnseenSweep string `env:"CRON_SCHEDULE_UNSEEN_SWEEP" envDefault:"0 */10 * * * *"`
}
