package appointments

import (
	"context"

	"interview-notifier/internal/common/aws"
)

const typeIndex = "project-appointments-index"

// AppointmentsByType lists stored appointments matching any of the given
// appointment type ids. Used by research tooling to pull a project's booked
// interviews.
func (s *Service) AppointmentsByType(ctx context.Context, typeIDs []string) ([]Appointment, error) {
	var matches []Appointment
	for _, typeID := range typeIDs {
		var batch []Appointment
		err := s.store.QueryIndex(ctx, s.tables.Appointments, typeIndex, aws.KeyCondition{
			PartitionName:  "appointment_type_id",
			PartitionValue: typeID,
		}, &batch)
		if err != nil {
			return nil, err
		}
		matches = append(matches, batch...)
	}
	return matches, nil
}
