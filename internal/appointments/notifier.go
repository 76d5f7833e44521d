package appointments

import (
	"context"
	"time"

	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/metrics"
	"interview-notifier/internal/directory"
)

// notifier carries the state of one notification dispatch: the appointment,
// its type policy, and lazily-resolved calendar and project context shared
// across recipients.
type notifier struct {
	svc  *Service
	appt *Appointment
	at   *AppointmentType

	calendar         *Calendar
	projectID        string
	projectShortName string
	anonUserID       *string
	anonResolved     bool
}

func (s *Service) newNotifier(appt *Appointment, at *AppointmentType) *notifier {
	return &notifier{svc: s, appt: appt, at: at}
}

func (n *notifier) calendarItem(ctx context.Context) (*Calendar, error) {
	if n.calendar != nil {
		return n.calendar, nil
	}
	cal, err := n.svc.loadCalendar(ctx, n.appt.CalendarID)
	if err != nil {
		return nil, err
	}
	n.calendar = cal
	return cal, nil
}

func (n *notifier) researcherEmails(ctx context.Context) ([]string, error) {
	cal, err := n.calendarItem(ctx)
	if err != nil {
		return nil, err
	}
	if cal.EmailsToNotify == nil {
		return nil, errs.NewCalendarMisconfiguredError(cal.ID, "emails_to_notify")
	}
	return cal.EmailsToNotify, nil
}

func (n *notifier) interviewerLink(ctx context.Context) (string, error) {
	cal, err := n.calendarItem(ctx)
	if err != nil {
		return "", err
	}
	if cal.MyInterviewLink == nil {
		return "", errs.NewCalendarMisconfiguredError(cal.ID, "myinterview_link")
	}
	return *cal.MyInterviewLink, nil
}

// parseSourceDatetime accepts both RFC 3339 and the source's colon-less
// offset variant.
func parseSourceDatetime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05-0700", value)
}

// shouldAbort decides whether a notification attempt must not go out.
// Non-cancellation events re-fetch the live cancellation flag from the
// source, because a cancellation may have raced in since this event was
// queued. Any event aborts once the appointment time is more than the grace
// window in the past. Reminders additionally dedupe per calendar day on the
// last successful participant notification.
func (n *notifier) shouldAbort(ctx context.Context, eventType string) (bool, error) {
	if eventType != EventCancellation {
		if err := n.svc.refreshFromSource(ctx, n.appt); err != nil {
			return false, err
		}
		if n.appt.SourceInfo.Canceled {
			n.svc.log.Info("notification aborted, appointment has been cancelled", map[string]interface{}{
				"appointment_id": n.appt.AppointmentID,
			})
			return true, nil
		}
	}
	if n.appt.SourceInfo == nil {
		if err := n.svc.refreshFromSource(ctx, n.appt); err != nil {
			return false, err
		}
	}
	when, err := parseSourceDatetime(n.appt.SourceInfo.Datetime)
	if err != nil {
		return false, errs.NewMalformedEventError(n.appt.SourceInfo.Datetime)
	}
	if when.Before(n.svc.now().Add(-n.svc.graceWindow())) {
		n.svc.log.Info("notification aborted, appointment is in the past", map[string]interface{}{
			"appointment_id":       n.appt.AppointmentID,
			"appointment_datetime": n.appt.SourceInfo.Datetime,
		})
		return true, nil
	}
	if eventType == EventReminder && n.notifiedToday() {
		n.svc.log.Info("reminder aborted, participant already notified today", map[string]interface{}{
			"appointment_id":     n.appt.AppointmentID,
			"latest_notification": n.appt.LatestParticipantNotification,
		})
		return true, nil
	}
	return false, nil
}

func (n *notifier) notifiedToday() bool {
	stamp := n.appt.LatestParticipantNotification
	if stamp == "" || stamp == notificationSentinel {
		return false
	}
	today := n.svc.now().UTC().Format("2006-01-02")
	return len(stamp) >= len(today) && stamp[:len(today)] == today
}

func (n *notifier) notifyEmail(ctx context.Context, recipientEmail, role, eventType string) error {
	medium := mediumPhone
	if n.at.HasLink {
		medium = mediumWeb
	}
	domain := classifyEmailDomain(role, recipientEmail)
	tmpl, err := resolveTemplate(n.at.Templates, role, eventType, medium, domain)
	if err != nil {
		return err
	}
	props, err := n.customProperties(ctx, tmpl.CustomProperties)
	if err != nil {
		return err
	}
	return n.svc.directory.SendEmail(ctx, directory.EmailRequest{
		TemplateName:     tmpl.Name,
		ToRecipientEmail: recipientEmail,
		CustomProperties: props,
	})
}

// notifyParticipant attempts one participant notification and reports its
// status. Delivery failure is recorded and logged, not raised, so the
// remaining dispatch work continues.
func (n *notifier) notifyParticipant(ctx context.Context, eventType string) (string, error) {
	abort, err := n.shouldAbort(ctx, eventType)
	if err != nil {
		return StatusFailed, err
	}
	if abort {
		metrics.NotificationsSent.WithLabelValues(roleParticipant, eventType, StatusAborted).Inc()
		return StatusAborted, nil
	}
	if err := n.notifyEmail(ctx, n.appt.ParticipantEmail, roleParticipant, eventType); err != nil {
		n.svc.log.Error("failed to notify participant of interview appointment", map[string]interface{}{
			"appointment_id": n.appt.AppointmentID,
			"recipient":      n.appt.ParticipantEmail,
			"event_type":     eventType,
			"error":          err.Error(),
		})
		metrics.NotificationsSent.WithLabelValues(roleParticipant, eventType, StatusFailed).Inc()
		return StatusFailed, nil
	}
	if err := n.svc.touchParticipantNotification(ctx, n.appt); err != nil {
		n.svc.log.Error("participant notified but timestamp update failed", map[string]interface{}{
			"appointment_id": n.appt.AppointmentID,
			"error":          err.Error(),
		})
	}
	metrics.NotificationsSent.WithLabelValues(roleParticipant, eventType, StatusSent).Inc()
	return StatusSent, nil
}

// notifyResearchers attempts one notification per registered researcher
// email. The abort check runs independently of the participant path because
// a cancellation can land between the two. One recipient failing does not
// stop the others.
func (n *notifier) notifyResearchers(ctx context.Context, eventType string) ([]string, error) {
	emails, err := n.researcherEmails(ctx)
	if err != nil {
		return nil, err
	}
	abort, err := n.shouldAbort(ctx, eventType)
	if err != nil {
		return nil, err
	}
	if abort {
		statuses := make([]string, len(emails))
		for i := range statuses {
			statuses[i] = StatusAborted
			metrics.NotificationsSent.WithLabelValues(roleResearcher, eventType, StatusAborted).Inc()
		}
		return statuses, nil
	}
	statuses := make([]string, 0, len(emails))
	for _, email := range emails {
		status := StatusSent
		if err := n.notifyEmail(ctx, email, roleResearcher, eventType); err != nil {
			n.svc.log.Error("failed to notify researcher of interview appointment", map[string]interface{}{
				"appointment_id": n.appt.AppointmentID,
				"recipient":      email,
				"event_type":     eventType,
				"error":          err.Error(),
			})
			status = StatusFailed
		}
		metrics.NotificationsSent.WithLabelValues(roleResearcher, eventType, status).Inc()
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// sendNotifications runs the participant and researcher paths and aggregates
// their statuses. A researcher-side infrastructure failure is isolated: the
// participant result survives and Researchers comes back nil.
func (n *notifier) sendNotifications(ctx context.Context, eventType string) *Results {
	participant, err := n.notifyParticipant(ctx, eventType)
	if err != nil {
		n.svc.log.Error("participant notification path failed", map[string]interface{}{
			"appointment_id": n.appt.AppointmentID,
			"event_type":     eventType,
			"error":          err.Error(),
		})
		participant = StatusFailed
	}
	researchers, err := n.notifyResearchers(ctx, eventType)
	if err != nil {
		n.svc.log.Error("failed to notify researchers", map[string]interface{}{
			"appointment_id": n.appt.AppointmentID,
			"event_type":     eventType,
			"error":          err.Error(),
		})
		researchers = nil
	}
	return &Results{Participant: participant, Researchers: researchers}
}

// sendReminder notifies the participant only. Researchers do not receive
// reminders.
func (n *notifier) sendReminder(ctx context.Context) (string, error) {
	return n.notifyParticipant(ctx, EventReminder)
}
