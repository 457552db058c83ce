// Package reminder provides scheduling logic for CradleLog.
//
// It allows jobs (such as sending logging reminder texts to caregivers) to be
// scheduled using cron expressions.
package reminder

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/NestNote/CradleLog/internal/notify"
	"github.com/NestNote/CradleLog/internal/store"
)

// DefaultEveningCron fires at 19:00 local time every day.
const DefaultEveningCron = "0 19 * * *"

// DefaultReminderBody is the text sent by the evening logging reminder.
const DefaultReminderBody = "CradleLog reminder: take a minute to log today's naps and feedings."

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Service sends scheduled reminder texts to caregivers.
type Service struct {
	st       store.Store
	notifier notify.Notifier
	sched    *Scheduler
}

// NewService creates a reminder service on top of an existing scheduler.
func NewService(st store.Store, notifier notify.Notifier, sched *Scheduler) *Service {
	return &Service{st: st, notifier: notifier, sched: sched}
}

// ScheduleEveningReminder registers the daily logging reminder job.
func (s *Service) ScheduleEveningReminder(expr string) error {
	if expr == "" {
		expr = DefaultEveningCron
	}
	return s.sched.AddJob(expr, func() {
		s.SendLoggingReminders(context.Background())
	})
}

// SendLoggingReminders texts every caregiver that has a phone number on file.
// Failures are logged per caregiver so one bad number does not stop the rest.
func (s *Service) SendLoggingReminders(ctx context.Context) {
	caregivers, err := s.st.ListCaregivers()
	if err != nil {
		slog.Error("Service.SendLoggingReminders: failed to list caregivers", "error", err)
		return
	}
	sent := 0
	for _, c := range caregivers {
		if c.Phone == "" {
			continue
		}
		if err := s.notifier.SendSMS(ctx, c.Phone, DefaultReminderBody); err != nil {
			slog.Error("Service.SendLoggingReminders: failed to send reminder", "error", err, "caregiver", c.ID)
			continue
		}
		sent++
	}
	slog.Info("Service.SendLoggingReminders: reminders sent", "count", sent, "caregivers", len(caregivers))
}
