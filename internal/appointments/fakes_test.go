package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"interview-notifier/internal/common/aws"
	"interview-notifier/internal/common/config"
	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/directory"
	"interview-notifier/internal/scheduling"
)

// fakeStore is an in-memory stand-in for the durable store. Items round-trip
// through JSON so struct tags behave like they do against the real store.
type fakeStore struct {
	mu    sync.Mutex
	items map[string]map[string]json.RawMessage
	types map[string]map[string]string // table -> key -> item-type marker
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: map[string]map[string]json.RawMessage{},
		types: map[string]map[string]string{},
	}
}

func (f *fakeStore) seed(table, key string, item interface{}) {
	data, err := json.Marshal(item)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[table] == nil {
		f.items[table] = map[string]json.RawMessage{}
	}
	f.items[table][key] = data
}

func (f *fakeStore) Get(_ context.Context, table, key string, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.items[table][key]
	if !ok {
		return fmt.Errorf("table %s key %s: %w", table, key, errs.ErrItemNotFound)
	}
	return json.Unmarshal(data, out)
}

func (f *fakeStore) Put(_ context.Context, table, key, itemType string, item interface{}, updateAllowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[table] == nil {
		f.items[table] = map[string]json.RawMessage{}
		f.types[table] = map[string]string{}
	}
	if _, exists := f.items[table][key]; exists && !updateAllowed {
		return errs.NewStoreConflictError(table, key)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	f.items[table][key] = data
	if f.types[table] == nil {
		f.types[table] = map[string]string{}
	}
	f.types[table][key] = itemType
	return nil
}

func (f *fakeStore) Update(_ context.Context, table, key string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.items[table][key]
	if !ok {
		return fmt.Errorf("table %s key %s: %w", table, key, errs.ErrItemNotFound)
	}
	var item map[string]interface{}
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	for k, v := range fields {
		item[k] = v
	}
	updated, err := json.Marshal(item)
	if err != nil {
		return err
	}
	f.items[table][key] = updated
	return nil
}

func (f *fakeStore) QueryIndex(_ context.Context, table, index string, cond aws.KeyCondition, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []json.RawMessage
	for _, data := range f.items[table] {
		var fields map[string]interface{}
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		pv, _ := fields[cond.PartitionName].(string)
		if pv != cond.PartitionValue {
			continue
		}
		if cond.SortName != "" {
			sv, _ := fields[cond.SortName].(string)
			if sv < cond.SortFrom || sv > cond.SortTo {
				continue
			}
		}
		matches = append(matches, data)
	}
	joined, err := json.Marshal(matches)
	if err != nil {
		return err
	}
	return json.Unmarshal(joined, out)
}

func (f *fakeStore) ScanFilter(_ context.Context, table, field string, fieldValues []interface{}, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []json.RawMessage
	for _, data := range f.items[table] {
		var fields map[string]interface{}
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		for _, want := range fieldValues {
			if fields[field] == want {
				matches = append(matches, data)
				break
			}
		}
	}
	joined, err := json.Marshal(matches)
	if err != nil {
		return err
	}
	return json.Unmarshal(joined, out)
}

func (f *fakeStore) Delete(_ context.Context, table, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items[table], key)
	return nil
}

func (f *fakeStore) itemType(table, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[table][key]
}

// fakeSource serves canned live appointment state and counts fetches.
type fakeSource struct {
	mu           sync.Mutex
	appointments map[string]*scheduling.SourceAppointment
	fetches      int
	err          error
}

func newFakeSource() *fakeSource {
	return &fakeSource{appointments: map[string]*scheduling.SourceAppointment{}}
}

func (f *fakeSource) GetAppointment(_ context.Context, appointmentID string) (*scheduling.SourceAppointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	appt, ok := f.appointments[appointmentID]
	if !ok {
		return nil, errs.NewNotFoundError(errs.ErrCodeAppointmentNotFound, "appointment", appointmentID)
	}
	clone := *appt
	return &clone, nil
}

// fakeDirectory uses function fields so each test overrides exactly the
// behaviour it cares about.
type fakeDirectory struct {
	mu             sync.Mutex
	sentEmails     []directory.EmailRequest
	lookupFunc     func(email string) (*directory.UserLookup, error)
	projectsFunc   func() ([]directory.Project, error)
	userProjsFunc  func(userID string) ([]directory.UserProject, error)
	sendEmailErr   map[string]error // recipient -> injected failure
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		lookupFunc: func(string) (*directory.UserLookup, error) {
			return &directory.UserLookup{Registered: false}, nil
		},
		projectsFunc: func() ([]directory.Project, error) {
			return []directory.Project{
				{
					ID:        "project-1",
					ShortName: "PSFU-06-A",
					Tasks:     []directory.ProjectTask{{ID: "task-1"}},
				},
			}, nil
		},
		userProjsFunc: func(string) ([]directory.UserProject, error) {
			return nil, nil
		},
	}
}

func (f *fakeDirectory) LookupUserByEmail(_ context.Context, email string) (*directory.UserLookup, error) {
	return f.lookupFunc(email)
}

func (f *fakeDirectory) GetProjects(_ context.Context) ([]directory.Project, error) {
	return f.projectsFunc()
}

func (f *fakeDirectory) GetUserProjects(_ context.Context, userID string) ([]directory.UserProject, error) {
	return f.userProjsFunc(userID)
}

func (f *fakeDirectory) SendEmail(_ context.Context, email directory.EmailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.sendEmailErr[email.ToRecipientEmail]; ok {
		return err
	}
	f.sentEmails = append(f.sentEmails, email)
	return nil
}

func (f *fakeDirectory) sent() []directory.EmailRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]directory.EmailRequest(nil), f.sentEmails...)
}

// fakeMailer records internal-team emails.
type teamEmail struct {
	From, To, Subject, TextBody, HTMLBody string
}

type fakeMailer struct {
	mu     sync.Mutex
	emails []teamEmail
	err    error
}

func (f *fakeMailer) SendEmail(_ context.Context, from, to, subject, textBody, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.emails = append(f.emails, teamEmail{from, to, subject, textBody, htmlBody})
	return nil
}

func (f *fakeMailer) sent() []teamEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]teamEmail(nil), f.emails...)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Tables = config.TablesConfig{
		Appointments:     "interview-appointments",
		AppointmentTypes: "interview-appointment-types",
		Calendars:        "interview-calendars",
		CalendarBlocks:   "interview-calendar-blocks",
	}
	cfg.Notifications = config.NotificationsConfig{
		GraceWindowHours:  2,
		ReminderLookahead: 1,
		RetentionDays:     60,
	}
	cfg.AWS.SES.FromEmail = "notifications@example.com"
	cfg.AWS.SES.ManagerEmail = "manager@example.com"
	return cfg
}

type testHarness struct {
	svc    *Service
	store  *fakeStore
	source *fakeSource
	dir    *fakeDirectory
	mailer *fakeMailer
	cfg    *config.Config
}

func newTestHarness() *testHarness {
	store := newFakeStore()
	source := newFakeSource()
	dir := newFakeDirectory()
	mailer := &fakeMailer{}
	cfg := testConfig()
	svc := NewService(store, source, dir, mailer, cfg, logger.NewNoOpLogger())
	return &testHarness{svc: svc, store: store, source: source, dir: dir, mailer: mailer, cfg: cfg}
}
