package appointments

import (
	"context"
)

// SetInterviewURL attaches an out-of-band generated video-call link to a
// stored appointment and, when the type allows it, notifies participant and
// researchers using the given event type's templates. This is the flow that
// picks up notifications deferred at booking or rescheduling time.
func (s *Service) SetInterviewURL(ctx context.Context, appointmentID, interviewURL, eventType string) (*Results, error) {
	appt, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, s.tables.Appointments, appointmentID, map[string]interface{}{
		"link": interviewURL,
	}); err != nil {
		return nil, err
	}
	appt.Link = &interviewURL
	s.log.Info("interview link attached to appointment", map[string]interface{}{
		"appointment_id": appointmentID,
		"event_type":     eventType,
	})

	at := appt.AppointmentType
	if !at.SendNotifications {
		return &Results{}, nil
	}
	return s.newNotifier(appt, &at).sendNotifications(ctx, eventType), nil
}
