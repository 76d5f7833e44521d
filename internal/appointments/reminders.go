package appointments

import (
	"context"
	"time"

	"interview-notifier/internal/common/aws"
	"interview-notifier/internal/common/metrics"
)

const remindersIndex = "reminders-index"

// ReminderResult records the outcome of one reminder attempt.
type ReminderResult struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// appointmentsDueReminder finds appointments booked for tomorrow whose last
// participant notification predates today. The BETWEEN upper bound is a
// date-only string, which sorts before any timestamp from today, so
// appointments already emailed today are excluded and the sweep stays
// idempotent.
func (s *Service) appointmentsDueReminder(ctx context.Context) ([]Appointment, error) {
	lookahead := s.notification.ReminderLookahead
	if lookahead <= 0 {
		lookahead = 1
	}
	now := s.now().UTC()
	target := now.AddDate(0, 0, lookahead).Format("2006-01-02")
	today := now.Format("2006-01-02")

	var due []Appointment
	err := s.store.QueryIndex(ctx, s.tables.Appointments, remindersIndex, aws.KeyCondition{
		PartitionName:  "appointment_date",
		PartitionValue: target,
		SortName:       "latest_participant_notification",
		SortFrom:       "0000-00-00",
		SortTo:         today,
	}, &due)
	if err != nil {
		return nil, err
	}
	return due, nil
}

// SweepReminders sends a reminder for every appointment due tomorrow that
// has not been emailed today. One appointment failing does not stop the
// sweep; its failure is recorded in the results.
func (s *Service) SweepReminders(ctx context.Context) ([]ReminderResult, error) {
	due, err := s.appointmentsDueReminder(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RemindersSwept.Inc()

	results := make([]ReminderResult, 0, len(due))
	for i := range due {
		appt := &due[i]
		at := appt.AppointmentType
		status, err := s.newNotifier(appt, &at).sendReminder(ctx)
		if err != nil {
			s.log.Error("reminder dispatch raised an error", map[string]interface{}{
				"appointment_id": appt.AppointmentID,
				"error":          err.Error(),
			})
			status = StatusFailed
		}
		results = append(results, ReminderResult{
			AppointmentID: appt.AppointmentID,
			Status:        status,
		})
	}
	if len(results) > 0 {
		s.log.Info("reminder sweep completed", map[string]interface{}{
			"due":  len(due),
			"sent": countStatus(results, StatusSent),
		})
	}
	return results, nil
}

func countStatus(results []ReminderResult, status string) int {
	count := 0
	for _, r := range results {
		if r.Status == status {
			count++
		}
	}
	return count
}

// retentionCutoff is the appointment date swept by the retention cleaner.
func (s *Service) retentionCutoff(now time.Time) string {
	days := s.notification.RetentionDays
	if days <= 0 {
		days = 60
	}
	return now.UTC().AddDate(0, 0, -days).Format("2006-01-02")
}
