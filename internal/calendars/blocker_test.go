package calendars

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/scheduling"
)

// fakeStore mirrors the store fake used by the appointments tests, trimmed
// to the blocker's needs.
type fakeStore struct {
	mu    sync.Mutex
	items map[string]map[string]json.RawMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]map[string]json.RawMessage{}}
}

func (f *fakeStore) seed(table, key string, item interface{}) {
	data, _ := json.Marshal(item)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items[table] == nil {
		f.items[table] = map[string]json.RawMessage{}
	}
	f.items[table][key] = data
}

func (f *fakeStore) Put(_ context.Context, table, key, _ string, item interface{}, _ bool) error {
	f.seed(table, key, item)
	return nil
}

func (f *fakeStore) Update(_ context.Context, table, key string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.items[table][key]
	if !ok {
		return fmt.Errorf("no item %s/%s", table, key)
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

func (f *fakeStore) has(table, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[table][key]
	return ok
}

type fakeSource struct {
	mu           sync.Mutex
	nextBlockID  int
	created      []scheduling.Block
	deleted      []int
	createErrOn  int // calendar id that fails on CreateBlock
	deleteErrOn  int // block id that fails on DeleteBlock
}

func (f *fakeSource) GetCalendars(context.Context) ([]scheduling.SourceCalendar, error) {
	return nil, nil
}

func (f *fakeSource) CreateBlock(_ context.Context, calendarID int, start, end time.Time, notes string) (*scheduling.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if calendarID == f.createErrOn {
		return nil, errors.New("source rejected block")
	}
	f.nextBlockID++
	block := scheduling.Block{
		ID:         f.nextBlockID,
		CalendarID: calendarID,
		Start:      start.Format("2006-01-02 03:04PM"),
		End:        end.Format("2006-01-02 03:04PM"),
		Notes:      notes,
	}
	f.created = append(f.created, block)
	return &block, nil
}

func (f *fakeSource) DeleteBlock(_ context.Context, blockID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if blockID == f.deleteErrOn {
		return errors.New("source delete failed")
	}
	f.deleted = append(f.deleted, blockID)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePublisher) PublishToTopic(_ context.Context, _, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func newTestBlocker() (*Blocker, *fakeStore, *fakeSource, *fakePublisher) {
	store := newFakeStore()
	source := &fakeSource{}
	publisher := &fakePublisher{}
	cfg := &config.Config{
		Tables: config.TablesConfig{
			Calendars:      "interview-calendars",
			CalendarBlocks: "interview-calendar-blocks",
		},
	}
	cfg.AWS.SNS.OpsTopicARN = "arn:aws:sns:eu-west-1:000000000000:ops"
	b := NewBlocker(store, source, publisher, cfg, logger.NewNoOpLogger())
	// Tuesday 2026-09-01
	b.WithClock(func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) })
	return b, store, source, publisher
}

func TestNextWeekday(t *testing.T) {
	tuesday := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.Equal(t, time.Tuesday, tuesday.Weekday())

	saturday := nextWeekday(tuesday, time.Saturday)
	assert.Equal(t, time.Saturday, saturday.Weekday())
	assert.Equal(t, 5, saturday.Day())

	// asked on the target weekday itself, the next occurrence is a week out
	monday := nextWeekday(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), time.Monday)
	assert.Equal(t, 14, monday.Day())
}

func TestWeekendWindow(t *testing.T) {
	b, _, _, _ := newTestBlocker()

	start, end := b.weekendWindow()
	assert.Equal(t, time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC), end)
}

func TestCreateBlocksTargetsFlaggedCalendarsOnly(t *testing.T) {
	b, store, source, _ := newTestBlocker()
	store.seed("interview-calendars", "101", calendarEntry{ID: "101", Label: "Andre Sanchez", BlockMondayMorning: true})
	store.seed("interview-calendars", "102", calendarEntry{ID: "102", Label: "Delia Barnett", BlockMondayMorning: false})
	store.seed("interview-calendars", "103", calendarEntry{ID: "103", Label: "Fatima Malik", BlockMondayMorning: true})

	created, affected, err := b.CreateBlocks(context.Background())
	require.NoError(t, err)

	assert.Len(t, created, 2)
	assert.ElementsMatch(t, []string{"Andre Sanchez", "Fatima Malik"}, affected)
	assert.Len(t, source.created, 2)
	for _, id := range created {
		assert.True(t, store.has("interview-calendar-blocks", fmt.Sprintf("%d", id)))
	}
}

func TestCreateBlocksStopsAtFirstFailure(t *testing.T) {
	b, store, source, publisher := newTestBlocker()
	store.seed("interview-calendars", "101", calendarEntry{ID: "101", Label: "Andre Sanchez", BlockMondayMorning: true})
	source.createErrOn = 101

	err := b.RunCreate(context.Background())
	require.Error(t, err)
	require.Len(t, publisher.subjects, 1)
	assert.Contains(t, publisher.subjects[0], "ERROR")
}

func TestRunCreatePublishesSuccess(t *testing.T) {
	b, store, _, publisher := newTestBlocker()
	store.seed("interview-calendars", "101", calendarEntry{ID: "101", Label: "Andre Sanchez", BlockMondayMorning: true})

	require.NoError(t, b.RunCreate(context.Background()))
	require.Len(t, publisher.subjects, 1)
	assert.Contains(t, publisher.subjects[0], "SUCCESS")
}

func TestClearBlocksMarksFailuresAndContinues(t *testing.T) {
	b, store, source, _ := newTestBlocker()
	store.seed("interview-calendar-blocks", "1", BlockRecord{BlockID: 1, CalendarID: 101, Status: "new"})
	store.seed("interview-calendar-blocks", "2", BlockRecord{BlockID: 2, CalendarID: 103, Status: "new"})
	source.deleteErrOn = 1

	deleted, err := b.ClearBlocks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, deleted)

	// the failed block stays behind with an error status for manual follow-up
	var stuck []BlockRecord
	require.NoError(t, store.ScanFilter(context.Background(), "interview-calendar-blocks", "status", []interface{}{"error"}, &stuck))
	require.Len(t, stuck, 1)
	assert.Equal(t, 1, stuck[0].BlockID)
	assert.NotEmpty(t, stuck[0].ErrorMessage)

	assert.False(t, store.has("interview-calendar-blocks", "2"))
}

func TestClearBlocksIgnoresAlreadyErrored(t *testing.T) {
	b, store, source, _ := newTestBlocker()
	store.seed("interview-calendar-blocks", "1", BlockRecord{BlockID: 1, Status: "error"})

	deleted, err := b.ClearBlocks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.Empty(t, source.deleted)
}
