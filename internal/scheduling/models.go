package scheduling

// SourceAppointment is the scheduling source's live record of an appointment.
// Field names follow the source API wire format.
type SourceAppointment struct {
	ID                int    `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Datetime          string `json:"datetime"`
	Duration          string `json:"duration"`
	CalendarID        int    `json:"calendarID"`
	CalendarName      string `json:"calendar"`
	AppointmentTypeID int    `json:"appointmentTypeID"`
	TypeName          string `json:"type"`
	ConfirmationPage  string `json:"confirmationPage"`
	Canceled          bool   `json:"canceled"`
}

// SourceAppointmentType is a bookable appointment type as defined at the source.
type SourceAppointmentType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// SourceCalendar is an interviewer calendar as defined at the source.
type SourceCalendar struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Webhook is a registered event subscription at the source.
type Webhook struct {
	ID     int    `json:"id"`
	Event  string `json:"event"`
	Target string `json:"target"`
	Status string `json:"status"`
}

// Block is a blocked-off period on a source calendar.
type Block struct {
	ID         int    `json:"id"`
	CalendarID int    `json:"calendarID"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Notes      string `json:"notes"`
}
