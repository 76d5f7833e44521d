package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *testHarness) seedStoredAppointment(id, date, latestNotification string) {
	taskID := "task-1"
	h.store.seed(h.cfg.Tables.Appointments, id, Appointment{
		AppointmentID:                 id,
		AppointmentTypeID:             testTypeID,
		AppointmentDate:               date,
		CalendarID:                    testCalendarID,
		ParticipantEmail:              "clive@example.com",
		LatestParticipantNotification: latestNotification,
		AppointmentType: AppointmentType{
			TypeID:            testTypeID,
			Name:              "Development interview",
			SendNotifications: true,
			ProjectTaskID:     &taskID,
		},
	})
}

func TestSweepRemindersTargetsTomorrowOnly(t *testing.T) {
	h := newTestHarness()
	h.seedScenario(t, false, true)

	h.seedStoredAppointment(testAppointmentID, "2026-09-02", notificationSentinel)
	h.seedStoredAppointment("555", "2026-09-05", notificationSentinel) // too far out

	results, err := h.svc.SweepReminders(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, testAppointmentID, results[0].AppointmentID)
	assert.Equal(t, StatusSent, results[0].Status)

	emails := h.dir.sent()
	require.Len(t, emails, 1)
	assert.Equal(t, "interview_reminder_phone_participant", emails[0].TemplateName)
}

func TestSweepRemindersIsIdempotentAcrossRuns(t *testing.T) {
	h := newTestHarness()
	h.seedScenario(t, false, true)
	h.seedStoredAppointment(testAppointmentID, "2026-09-02", notificationSentinel)

	first, err := h.svc.SweepReminders(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, StatusSent, first[0].Status)

	// the successful send moved latest_participant_notification to today,
	// so a second sweep no longer matches the index condition
	second, err := h.svc.SweepReminders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, h.dir.sent(), 1)
}

func TestSweepRemindersSkipsAlreadyNotifiedToday(t *testing.T) {
	h := newTestHarness()
	h.seedScenario(t, false, true)
	h.seedStoredAppointment(testAppointmentID, "2026-09-02", "2026-09-01 08:00:00+00:00")

	results, err := h.svc.SweepReminders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, h.dir.sent())
}

func TestSweepRemindersOneFailureDoesNotStopSweep(t *testing.T) {
	h := newTestHarness()
	h.seedScenario(t, false, true)

	h.seedStoredAppointment(testAppointmentID, "2026-09-02", notificationSentinel)
	h.seedStoredAppointment("555", "2026-09-02", notificationSentinel)
	delete(h.source.appointments, "555") // live fetch for this one fails

	results, err := h.svc.SweepReminders(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]string{}
	for _, r := range results {
		byID[r.AppointmentID] = r.Status
	}
	assert.Equal(t, StatusSent, byID[testAppointmentID])
	assert.Equal(t, StatusFailed, byID["555"])
}

func TestDeleteOldAppointments(t *testing.T) {
	h := newTestHarness()
	h.seedScenario(t, false, true)

	expiredDate := testNow.AddDate(0, 0, -60).Format("2006-01-02")
	h.seedStoredAppointment("111", expiredDate, notificationSentinel)
	h.seedStoredAppointment("222", expiredDate, notificationSentinel)
	h.seedStoredAppointment("333", "2026-09-02", notificationSentinel)

	deleted, err := h.svc.DeleteOldAppointments(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"111", "222"}, deleted)

	var remaining Appointment
	err = h.store.Get(context.Background(), h.cfg.Tables.Appointments, "333", &remaining)
	require.NoError(t, err, "upcoming appointments are never touched")
}

func TestAppointmentsByType(t *testing.T) {
	h := newTestHarness()
	h.seedScenario(t, false, true)

	h.seedStoredAppointment("111", "2026-09-02", notificationSentinel)
	h.seedStoredAppointment("222", "2026-09-03", notificationSentinel)
	h.store.seed(h.cfg.Tables.Appointments, "333", Appointment{
		AppointmentID:     "333",
		AppointmentTypeID: "99999",
		AppointmentDate:   "2026-09-02",
	})

	matches, err := h.svc.AppointmentsByType(context.Background(), []string{testTypeID})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	matches, err = h.svc.AppointmentsByType(context.Background(), []string{testTypeID, "99999"})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestRetentionCutoff(t *testing.T) {
	h := newTestHarness()
	h.svc.WithClock(func() time.Time { return testNow })

	assert.Equal(t, "2026-07-03", h.svc.retentionCutoff(testNow))
}
