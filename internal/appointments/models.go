// Package appointments implements the event-to-notification decision engine:
// it classifies incoming appointment lifecycle events, persists appointment
// state and routes templated email notifications to participants, researchers
// and the internal team.
package appointments

import (
	"interview-notifier/internal/scheduling"
)

// Actions carried by source webhook events.
const (
	ActionScheduled   = "scheduled"
	ActionRescheduled = "rescheduled"
	ActionCanceled    = "canceled"
)

// Event types used for template lookup. Booking, rescheduling and
// cancellation map 1:1 to webhook actions; reminders come from the sweep.
const (
	EventBooking      = "booking"
	EventRescheduling = "rescheduling"
	EventCancellation = "cancellation"
	EventReminder     = "reminder"
)

// Per-recipient notification statuses.
const (
	StatusSent    = "sent"
	StatusAborted = "aborted"
	StatusFailed  = "failed"
)

// Item-type markers written alongside stored items.
const (
	itemTypeAppointment     = "interview-appointment"
	itemTypeAppointmentType = "interview-appointment-type"
)

// notificationSentinel is the value of LatestParticipantNotification before
// any notification has been sent. The reminders index uses the field as a
// sort key, so it can never be empty, and the sentinel must sort before any
// real timestamp.
const notificationSentinel = "0000-00-00 00:00:00+00:00"

// notificationTimeFormat keeps stored notification timestamps lexicographically
// sortable against the sentinel and against date-only query bounds.
const notificationTimeFormat = "2006-01-02 15:04:05-07:00"

// Appointment is one booked interview. SourceInfo is an opaque snapshot of
// the latest fetch from the scheduling source; the remaining fields are
// denormalised from it for indexing and survive source-side cancellation.
type Appointment struct {
	AppointmentID                 string                         `json:"appointment_id" dynamodbav:"appointment_id"`
	AppointmentTypeID             string                         `json:"appointment_type_id" dynamodbav:"appointment_type_id"`
	AppointmentDate               string                         `json:"appointment_date" dynamodbav:"appointment_date"`
	CalendarID                    string                         `json:"calendar_id" dynamodbav:"calendar_id"`
	CalendarName                  string                         `json:"calendar_name" dynamodbav:"calendar_name"`
	ParticipantEmail              string                         `json:"participant_email" dynamodbav:"participant_email"`
	ParticipantUserID             *string                        `json:"participant_user_id" dynamodbav:"participant_user_id"`
	Link                          *string                        `json:"link" dynamodbav:"link"`
	LatestParticipantNotification string                         `json:"latest_participant_notification" dynamodbav:"latest_participant_notification"`
	SourceInfo                    *scheduling.SourceAppointment  `json:"source_info" dynamodbav:"source_info"`
	AppointmentType               AppointmentType                `json:"appointment_type" dynamodbav:"appointment_type"`
}

// AppointmentType is the per-type notification policy. Populated by the
// import tooling; read-only during event processing.
type AppointmentType struct {
	TypeID            string      `json:"type_id" dynamodbav:"type_id"`
	Name              string      `json:"name" dynamodbav:"name"`
	Category          string      `json:"category" dynamodbav:"category"`
	HasLink           bool        `json:"has_link" dynamodbav:"has_link"`
	SendNotifications bool        `json:"send_notifications" dynamodbav:"send_notifications"`
	Templates         TemplateMap `json:"templates" dynamodbav:"templates"`
	ProjectTaskID     *string     `json:"project_task_id" dynamodbav:"project_task_id"`
}

// Calendar is an interviewer calendar record. EmailsToNotify and, for
// link-based types, MyInterviewLink are required; their absence is a
// misconfiguration, not a soft skip.
type Calendar struct {
	ID                 string   `json:"id" dynamodbav:"id"`
	Label              string   `json:"label" dynamodbav:"label"`
	EmailsToNotify     []string `json:"emails_to_notify" dynamodbav:"emails_to_notify"`
	MyInterviewLink    *string  `json:"myinterview_link" dynamodbav:"myinterview_link"`
	BlockMondayMorning bool     `json:"block_monday_morning" dynamodbav:"block_monday_morning"`
}

// Results aggregates the per-recipient outcome of one notification dispatch.
// Researchers is nil when researcher notification infrastructure itself
// failed, as opposed to an empty or aborted list.
type Results struct {
	Participant string   `json:"participant"`
	Researchers []string `json:"researchers"`
}

// ProcessOutcome is the tri-state result of processing one lifecycle event:
// what was persisted, whether the internal team was told, and what recipient
// notifications were attempted. Nil pointers mean "not applicable on this
// path", never silent failure.
type ProcessOutcome struct {
	Stored        bool     `json:"stored"`
	TeamNotified  *string  `json:"team_notified"`
	Notifications *Results `json:"notifications"`
}
