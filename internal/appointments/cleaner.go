package appointments

import (
	"context"

	"interview-notifier/internal/common/aws"
)

// DeleteOldAppointments removes appointments whose date fell exactly the
// retention period ago. Run daily, this keeps the table bounded without ever
// touching upcoming appointments. Returns the ids of deleted records.
func (s *Service) DeleteOldAppointments(ctx context.Context) ([]string, error) {
	cutoff := s.retentionCutoff(s.now())

	var expired []Appointment
	err := s.store.QueryIndex(ctx, s.tables.Appointments, remindersIndex, aws.KeyCondition{
		PartitionName:  "appointment_date",
		PartitionValue: cutoff,
	}, &expired)
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(expired))
	for i := range expired {
		id := expired[i].AppointmentID
		if err := s.store.Delete(ctx, s.tables.Appointments, id); err != nil {
			s.log.Error("failed to delete expired appointment", map[string]interface{}{
				"appointment_id": id,
				"error":          err.Error(),
			})
			continue
		}
		deleted = append(deleted, id)
	}
	s.log.Info("retention sweep completed", map[string]interface{}{
		"appointment_date": cutoff,
		"deleted":          len(deleted),
	})
	return deleted, nil
}
