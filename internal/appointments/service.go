package appointments

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"interview-notifier/internal/common/aws"
	"interview-notifier/internal/common/config"
	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/directory"
	"interview-notifier/internal/scheduling"
)

// Store is the durable key-value store the service persists into.
type Store interface {
	Get(ctx context.Context, table, key string, out interface{}) error
	Put(ctx context.Context, table, key, itemType string, item interface{}, updateAllowed bool) error
	Update(ctx context.Context, table, key string, fields map[string]interface{}) error
	QueryIndex(ctx context.Context, table, index string, cond aws.KeyCondition, out interface{}) error
	ScanFilter(ctx context.Context, table, field string, fieldValues []interface{}, out interface{}) error
	Delete(ctx context.Context, table, key string) error
}

// Source is the scheduling system of record for live appointment state.
type Source interface {
	GetAppointment(ctx context.Context, appointmentID string) (*scheduling.SourceAppointment, error)
}

// Directory is the participant directory and transactional email collaborator.
type Directory interface {
	LookupUserByEmail(ctx context.Context, email string) (*directory.UserLookup, error)
	GetProjects(ctx context.Context) ([]directory.Project, error)
	GetUserProjects(ctx context.Context, userID string) ([]directory.UserProject, error)
	SendEmail(ctx context.Context, email directory.EmailRequest) error
}

// TeamMailer delivers plain internal-team emails.
type TeamMailer interface {
	SendEmail(ctx context.Context, from, to, subject, textBody, htmlBody string) error
}

// Service wires the decision engine to its collaborators. One Service handles
// many events; per-dispatch state lives in notifier instances.
type Service struct {
	store     Store
	source    Source
	directory Directory
	mailer    TeamMailer

	tables       config.TablesConfig
	notification config.NotificationsConfig
	fromEmail    string
	managerEmail string

	log logger.Logger
	now func() time.Time
}

func NewService(store Store, source Source, dir Directory, mailer TeamMailer, cfg *config.Config, log logger.Logger) *Service {
	return &Service{
		store:        store,
		source:       source,
		directory:    dir,
		mailer:       mailer,
		tables:       cfg.Tables,
		notification: cfg.Notifications,
		fromEmail:    cfg.AWS.SES.FromEmail,
		managerEmail: cfg.AWS.SES.ManagerEmail,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the service clock. Tests use this to pin "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) graceWindow() time.Duration {
	hours := s.notification.GraceWindowHours
	if hours <= 0 {
		hours = 2
	}
	return time.Duration(hours) * time.Hour
}

// refreshFromSource replaces the appointment's source snapshot with the live
// record and re-derives the denormalised fields.
func (s *Service) refreshFromSource(ctx context.Context, appt *Appointment) error {
	info, err := s.source.GetAppointment(ctx, appt.AppointmentID)
	if err != nil {
		return err
	}
	appt.ApplySourceInfo(info)
	return nil
}

// ApplySourceInfo populates the denormalised appointment fields from a source
// snapshot. The date-only AppointmentDate feeds the reminders index.
func (a *Appointment) ApplySourceInfo(info *scheduling.SourceAppointment) {
	a.SourceInfo = info
	a.AppointmentTypeID = strconv.Itoa(info.AppointmentTypeID)
	a.CalendarID = strconv.Itoa(info.CalendarID)
	a.CalendarName = info.CalendarName
	a.ParticipantEmail = info.Email
	if idx := strings.IndexByte(info.Datetime, 'T'); idx > 0 {
		a.AppointmentDate = info.Datetime[:idx]
	} else {
		a.AppointmentDate = info.Datetime
	}
}

func (s *Service) loadAppointment(ctx context.Context, appointmentID string) (*Appointment, error) {
	var appt Appointment
	err := s.store.Get(ctx, s.tables.Appointments, appointmentID, &appt)
	if errors.Is(err, errs.ErrItemNotFound) {
		return nil, errs.NewNotFoundError(errs.ErrCodeAppointmentNotFound, "appointment", appointmentID)
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *Service) loadAppointmentType(ctx context.Context, typeID string) (*AppointmentType, error) {
	var at AppointmentType
	err := s.store.Get(ctx, s.tables.AppointmentTypes, typeID, &at)
	if errors.Is(err, errs.ErrItemNotFound) {
		return nil, errs.NewNotFoundError(errs.ErrCodeAppointmentTypeNotFound, "appointment type", typeID)
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func (s *Service) loadCalendar(ctx context.Context, calendarID string) (*Calendar, error) {
	var cal Calendar
	err := s.store.Get(ctx, s.tables.Calendars, calendarID, &cal)
	if errors.Is(err, errs.ErrItemNotFound) {
		return nil, errs.NewNotFoundError(errs.ErrCodeCalendarNotFound, "calendar", calendarID)
	}
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

func (s *Service) saveAppointment(ctx context.Context, appt *Appointment, updateAllowed bool) error {
	return s.store.Put(ctx, s.tables.Appointments, appt.AppointmentID, itemTypeAppointment, appt, updateAllowed)
}

// SaveAppointmentType persists a type policy record. Used by the import tooling.
func (s *Service) SaveAppointmentType(ctx context.Context, at *AppointmentType, updateAllowed bool) error {
	return s.store.Put(ctx, s.tables.AppointmentTypes, at.TypeID, itemTypeAppointmentType, at, updateAllowed)
}

// touchParticipantNotification records a successful participant send. The
// field is monotonically non-decreasing and only ever moves after a send
// succeeds, which is what makes repeated reminder sweeps idempotent.
func (s *Service) touchParticipantNotification(ctx context.Context, appt *Appointment) error {
	stamp := s.now().UTC().Format(notificationTimeFormat)
	if err := s.store.Update(ctx, s.tables.Appointments, appt.AppointmentID, map[string]interface{}{
		"latest_participant_notification": stamp,
	}); err != nil {
		return err
	}
	appt.LatestParticipantNotification = stamp
	return nil
}

// ImportSourceType upserts a source-defined appointment type. Name and
// category always follow the source; the locally managed policy fields
// (has_link, send_notifications, templates, project task) are preserved on
// types that already exist. Returns true when the type was newly created.
func (s *Service) ImportSourceType(ctx context.Context, src scheduling.SourceAppointmentType) (bool, error) {
	typeID := strconv.Itoa(src.ID)
	existing, err := s.loadAppointmentType(ctx, typeID)
	if err != nil {
		if !errs.IsNotFound(err) {
			return false, err
		}
		at := &AppointmentType{
			TypeID:   typeID,
			Name:     src.Name,
			Category: src.Category,
		}
		return true, s.SaveAppointmentType(ctx, at, false)
	}
	existing.Name = src.Name
	existing.Category = src.Category
	return false, s.SaveAppointmentType(ctx, existing, true)
}

// resolveParticipantUserID lazily resolves the participant's directory
// account. An unregistered participant is an expected soft miss.
func (s *Service) resolveParticipantUserID(ctx context.Context, appt *Appointment) (*string, error) {
	if appt.ParticipantUserID != nil {
		return appt.ParticipantUserID, nil
	}
	lookup, err := s.directory.LookupUserByEmail(ctx, appt.ParticipantEmail)
	if err != nil {
		return nil, err
	}
	if !lookup.Registered {
		s.log.Info("participant has no directory account", map[string]interface{}{
			"appointment_id": appt.AppointmentID,
			"email":          appt.ParticipantEmail,
		})
		return nil, nil
	}
	appt.ParticipantUserID = &lookup.UserID
	return appt.ParticipantUserID, nil
}

