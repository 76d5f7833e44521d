package appointments

import (
	"context"
	"fmt"
	"regexp"

	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/metrics"
)

// eventPattern is the grammar of the source's webhook payload, a
// query-string-like blob. Anything that does not match is unprocessable.
var eventPattern = regexp.MustCompile(
	`^action=appointment\.(?P<action>scheduled|rescheduled|canceled|changed)` +
		`&id=(?P<id>\d+)` +
		`&calendarID=(?P<calendarID>\d+)` +
		`&appointmentTypeID=(?P<typeID>\d+)$`,
)

// Event is a parsed appointment lifecycle event.
type Event struct {
	Action            string
	AppointmentID     string
	CalendarID        string
	AppointmentTypeID string
}

// ParseEvent validates a raw webhook payload against the event grammar.
// A malformed payload is fatal: no retry will ever make it parse.
func ParseEvent(raw string) (*Event, error) {
	m := eventPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, errs.NewMalformedEventError(raw)
	}
	return &Event{
		Action:            m[eventPattern.SubexpIndex("action")],
		AppointmentID:     m[eventPattern.SubexpIndex("id")],
		CalendarID:        m[eventPattern.SubexpIndex("calendarID")],
		AppointmentTypeID: m[eventPattern.SubexpIndex("typeID")],
	}, nil
}

// ProcessEvent parses an incoming lifecycle event, loads the type policy and
// routes to the matching lifecycle handler. The outcome reports storage,
// team-notification and recipient-notification results separately.
func (s *Service) ProcessEvent(ctx context.Context, raw string) (*ProcessOutcome, error) {
	started := s.now()
	event, err := ParseEvent(raw)
	if err != nil {
		s.log.Error("event payload does not match the expected grammar", map[string]interface{}{
			"payload": raw,
		})
		metrics.EventsProcessed.WithLabelValues("unknown", "malformed").Inc()
		return nil, err
	}

	at, err := s.loadAppointmentType(ctx, event.AppointmentTypeID)
	if err != nil {
		s.log.Error("failed to process event, appointment type not found", map[string]interface{}{
			"event":               raw,
			"appointment_type_id": event.AppointmentTypeID,
		})
		metrics.EventsProcessed.WithLabelValues(event.Action, "unknown-type").Inc()
		return nil, err
	}

	appt := &Appointment{
		AppointmentID:                 event.AppointmentID,
		LatestParticipantNotification: notificationSentinel,
		AppointmentType:               *at,
	}

	var outcome *ProcessOutcome
	switch event.Action {
	case ActionScheduled:
		outcome, err = s.processBooking(ctx, appt, at)
	case ActionCanceled:
		outcome, err = s.processCancellation(ctx, appt, at)
	case ActionRescheduled:
		outcome, err = s.processRescheduling(ctx, appt, at)
	default:
		metrics.EventsProcessed.WithLabelValues(event.Action, "unsupported").Inc()
		return nil, errs.NewUnsupportedActionError(event.Action)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EventsProcessed.WithLabelValues(event.Action, result).Inc()
	metrics.EventDuration.WithLabelValues(event.Action).Observe(s.now().Sub(started).Seconds())
	return outcome, err
}

// processBooking persists the freshly-fetched appointment. The first write
// must not be rejected as a duplicate. Link-based types get an internal-team
// notification only, because the interview link does not exist yet;
// phone-based types notify participant and researchers immediately.
func (s *Service) processBooking(ctx context.Context, appt *Appointment, at *AppointmentType) (*ProcessOutcome, error) {
	if err := s.refreshFromSource(ctx, appt); err != nil {
		return nil, err
	}
	if err := s.saveAppointment(ctx, appt, false); err != nil {
		return nil, err
	}
	outcome := &ProcessOutcome{Stored: true}
	if at.HasLink {
		status, err := s.notifyTeam(ctx, appt, ActionScheduled)
		if err != nil {
			return outcome, err
		}
		outcome.TeamNotified = &status
	} else {
		outcome.Notifications = s.notifyParticipantAndResearchers(ctx, appt, at, EventBooking)
	}
	return outcome, nil
}

// restoreStoredState pulls the previously persisted link and notification
// timestamp into the refreshed record. The live source stops exposing them
// once an appointment is cancelled.
func (s *Service) restoreStoredState(ctx context.Context, appt *Appointment) (*Appointment, error) {
	original, err := s.loadAppointment(ctx, appt.AppointmentID)
	if err != nil {
		return nil, err
	}
	appt.Link = original.Link
	appt.LatestParticipantNotification = original.LatestParticipantNotification
	if appt.LatestParticipantNotification == "" {
		appt.LatestParticipantNotification = notificationSentinel
	}
	return original, nil
}

// processCancellation always notifies, regardless of link policy: a
// cancellation is relevant whether or not a link was ever generated.
func (s *Service) processCancellation(ctx context.Context, appt *Appointment, at *AppointmentType) (*ProcessOutcome, error) {
	if err := s.refreshFromSource(ctx, appt); err != nil {
		return nil, err
	}
	if _, err := s.restoreStoredState(ctx, appt); err != nil {
		return nil, err
	}
	if err := s.saveAppointment(ctx, appt, true); err != nil {
		return nil, err
	}
	return &ProcessOutcome{
		Stored:        true,
		Notifications: s.notifyParticipantAndResearchers(ctx, appt, at, EventCancellation),
	}, nil
}

// processRescheduling re-persists the refreshed record. A calendar change
// means the interview needs re-coordination, so the internal team is told
// instead of the recipients. On the same calendar, link-based types that
// have no link yet defer silently until the link-setting flow runs.
func (s *Service) processRescheduling(ctx context.Context, appt *Appointment, at *AppointmentType) (*ProcessOutcome, error) {
	if err := s.refreshFromSource(ctx, appt); err != nil {
		return nil, err
	}
	original, err := s.restoreStoredState(ctx, appt)
	if err != nil {
		return nil, err
	}
	if err := s.saveAppointment(ctx, appt, true); err != nil {
		return nil, err
	}
	outcome := &ProcessOutcome{Stored: true}
	if original.CalendarID != appt.CalendarID {
		status, err := s.notifyTeam(ctx, appt, ActionRescheduled)
		if err != nil {
			return outcome, err
		}
		outcome.TeamNotified = &status
		return outcome, nil
	}
	if at.HasLink && appt.Link == nil {
		s.log.Debug("appointment rescheduled before interview link was generated, deferring notification", map[string]interface{}{
			"appointment_id": appt.AppointmentID,
		})
		return outcome, nil
	}
	outcome.Notifications = s.notifyParticipantAndResearchers(ctx, appt, at, EventRescheduling)
	return outcome, nil
}

// notifyParticipantAndResearchers runs the dispatcher unless notifications
// are disabled for the type, in which case nil signals "not applicable".
func (s *Service) notifyParticipantAndResearchers(ctx context.Context, appt *Appointment, at *AppointmentType, eventType string) *Results {
	if !at.SendNotifications {
		return nil
	}
	return s.newNotifier(appt, at).sendNotifications(ctx, eventType)
}

// notifyTeam emails the appointment manager about an event that needs manual
// coordination. Past appointments are not worth flagging.
func (s *Service) notifyTeam(ctx context.Context, appt *Appointment, action string) (string, error) {
	info := appt.SourceInfo
	when, err := parseSourceDatetime(info.Datetime)
	if err != nil {
		return "", errs.NewMalformedEventError(info.Datetime)
	}
	if when.Before(s.now().Add(-s.graceWindow())) {
		s.log.Info("team notification aborted, appointment is in the past", map[string]interface{}{
			"appointment_id": appt.AppointmentID,
		})
		return StatusAborted, nil
	}

	subject := fmt.Sprintf("[interview-notifier] Appointment %s %s", appt.AppointmentID, action)
	date := when.Format("02/01/2006 15:04")
	name := info.FirstName + " " + info.LastName
	textBody := fmt.Sprintf(
		"The following interview appointment has just been %s:\n"+
			"Type: %s\nDate: %s\nInterviewee name: %s\nInterviewee email: %s\n"+
			"Interviewer: %s\nCancel/reschedule: %s\n",
		action, appt.AppointmentType.Name, date, name, info.Email, info.CalendarName, info.ConfirmationPage,
	)
	htmlBody := fmt.Sprintf(
		"<p>The following interview appointment has just been %s:</p><ul>"+
			"<li>Type: %s</li><li>Date: %s</li><li>Interviewee name: %s</li>"+
			"<li>Interviewee email: %s</li><li>Interviewer: %s</li>"+
			"<li>Cancel/reschedule: %s</li></ul>",
		action, appt.AppointmentType.Name, date, name, info.Email, info.CalendarName, info.ConfirmationPage,
	)
	if err := s.mailer.SendEmail(ctx, s.fromEmail, s.managerEmail, subject, textBody, htmlBody); err != nil {
		return StatusFailed, errs.NewTeamNotifyFailedError(err)
	}
	return StatusSent, nil
}
