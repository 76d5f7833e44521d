// Package calendars blocks off Monday mornings on interviewer calendars so
// that weekend bookings cannot land before the team has triaged them, and
// clears the blocks again once the week starts.
package calendars

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/scheduling"
)

// Block statuses tracked in the blocks table.
const (
	blockStatusNew   = "new"
	blockStatusError = "error"
)

const itemTypeBlock = "calendar-block"

// calendarEntry is the subset of the calendar record the blocker needs.
type calendarEntry struct {
	ID                 string `json:"id" dynamodbav:"id"`
	Label              string `json:"label" dynamodbav:"label"`
	BlockMondayMorning bool   `json:"block_monday_morning" dynamodbav:"block_monday_morning"`
}

// BlockRecord tracks one source-side calendar block until it is cleared.
type BlockRecord struct {
	BlockID      int    `json:"block_id" dynamodbav:"block_id"`
	CalendarID   int    `json:"calendar_id" dynamodbav:"calendar_id"`
	Start        string `json:"start" dynamodbav:"start"`
	End          string `json:"end" dynamodbav:"end"`
	Status       string `json:"status" dynamodbav:"status"`
	ErrorMessage string `json:"error_message" dynamodbav:"error_message"`
}

// Store is the subset of store operations the blocker uses.
type Store interface {
	Put(ctx context.Context, table, key, itemType string, item interface{}, updateAllowed bool) error
	Update(ctx context.Context, table, key string, fields map[string]interface{}) error
	ScanFilter(ctx context.Context, table, field string, fieldValues []interface{}, out interface{}) error
	Delete(ctx context.Context, table, key string) error
}

// Source manages blocks and calendar listings at the scheduling source.
type Source interface {
	GetCalendars(ctx context.Context) ([]scheduling.SourceCalendar, error)
	CreateBlock(ctx context.Context, calendarID int, start, end time.Time, notes string) (*scheduling.Block, error)
	DeleteBlock(ctx context.Context, blockID int) error
}

// Publisher delivers operational notifications to the team topic.
type Publisher interface {
	PublishToTopic(ctx context.Context, topicARN, subject, message string) error
}

type Blocker struct {
	store     Store
	source    Source
	publisher Publisher
	tables    config.TablesConfig
	topicARN  string
	log       logger.Logger
	now       func() time.Time
}

func NewBlocker(store Store, source Source, publisher Publisher, cfg *config.Config, log logger.Logger) *Blocker {
	return &Blocker{
		store:     store,
		source:    source,
		publisher: publisher,
		tables:    cfg.Tables,
		topicARN:  cfg.AWS.SNS.OpsTopicARN,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the blocker clock. Tests use this to pin "now".
func (b *Blocker) WithClock(now func() time.Time) *Blocker {
	b.now = now
	return b
}

// nextWeekday returns the next date falling on the given weekday, always in
// the future (a Saturday asked on a Saturday yields next week's).
func nextWeekday(from time.Time, weekday time.Weekday) time.Time {
	daysAhead := int(weekday) - int(from.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	return from.AddDate(0, 0, daysAhead)
}

// weekendWindow is the blocked period: upcoming Saturday 00:00 through the
// following Monday 12:00.
func (b *Blocker) weekendWindow() (time.Time, time.Time) {
	now := b.now()
	saturday := nextWeekday(now, time.Saturday)
	monday := nextWeekday(now, time.Monday)
	start := time.Date(saturday.Year(), saturday.Month(), saturday.Day(), 0, 0, 0, 0, now.Location())
	end := time.Date(monday.Year(), monday.Month(), monday.Day(), 12, 0, 0, 0, now.Location())
	return start, end
}

func (b *Blocker) targetCalendars(ctx context.Context) ([]calendarEntry, error) {
	var calendars []calendarEntry
	err := b.store.ScanFilter(ctx, b.tables.Calendars, "block_monday_morning", []interface{}{true}, &calendars)
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

// CreateBlocks blocks the upcoming weekend window on every calendar flagged
// for Monday-morning blocking and records each created block. Stops at the
// first failure so the operator knows exactly which calendars were covered.
func (b *Blocker) CreateBlocks(ctx context.Context) ([]int, []string, error) {
	calendars, err := b.targetCalendars(ctx)
	if err != nil {
		return nil, nil, err
	}
	b.log.Debug("calendars to block", map[string]interface{}{"count": len(calendars)})

	start, end := b.weekendWindow()
	var createdIDs []int
	var affected []string
	for _, cal := range calendars {
		calendarID, err := strconv.Atoi(cal.ID)
		if err != nil {
			return createdIDs, affected, fmt.Errorf("calendar %s has a non-numeric id: %w", cal.ID, err)
		}
		block, err := b.source.CreateBlock(ctx, calendarID, start, end, "automated weekend block")
		if err != nil {
			b.log.Error("block creation failed partway", map[string]interface{}{
				"calendar_id":       cal.ID,
				"created_block_ids": createdIDs,
				"error":             err.Error(),
			})
			return createdIDs, affected, err
		}
		record := BlockRecord{
			BlockID:    block.ID,
			CalendarID: block.CalendarID,
			Start:      block.Start,
			End:        block.End,
			Status:     blockStatusNew,
		}
		if err := b.store.Put(ctx, b.tables.CalendarBlocks, strconv.Itoa(block.ID), itemTypeBlock, record, false); err != nil {
			return createdIDs, affected, err
		}
		createdIDs = append(createdIDs, block.ID)
		affected = append(affected, cal.Label)
	}
	return createdIDs, affected, nil
}

// ClearBlocks deletes every tracked block from the source and drops its
// record. A block that fails to delete is marked with an error status and
// left in place for manual follow-up; the rest of the sweep continues.
func (b *Blocker) ClearBlocks(ctx context.Context) ([]int, error) {
	var blocks []BlockRecord
	err := b.store.ScanFilter(ctx, b.tables.CalendarBlocks, "status", []interface{}{blockStatusNew}, &blocks)
	if err != nil {
		return nil, err
	}

	var deleted []int
	for _, block := range blocks {
		key := strconv.Itoa(block.BlockID)
		if err := b.source.DeleteBlock(ctx, block.BlockID); err != nil {
			b.markFailedDeletion(ctx, key, err)
			continue
		}
		if err := b.store.Delete(ctx, b.tables.CalendarBlocks, key); err != nil {
			b.markFailedDeletion(ctx, key, err)
			continue
		}
		deleted = append(deleted, block.BlockID)
	}
	return deleted, nil
}

func (b *Blocker) markFailedDeletion(ctx context.Context, key string, cause error) {
	message := fmt.Sprintf("failed to delete calendar block %s: %s", key, cause.Error())
	b.log.Error(message, map[string]interface{}{"block_id": key})
	if err := b.store.Update(ctx, b.tables.CalendarBlocks, key, map[string]interface{}{
		"status":        blockStatusError,
		"error_message": message,
	}); err != nil {
		b.log.Error("failed to record block deletion error", map[string]interface{}{
			"block_id": key,
			"error":    err.Error(),
		})
	}
}

// RunCreate blocks the weekend window and reports the outcome to the ops
// topic either way.
func (b *Blocker) RunCreate(ctx context.Context) error {
	createdIDs, affected, err := b.CreateBlocks(ctx)
	if err != nil {
		b.publish(ctx,
			"ERROR: failed to create Monday morning calendar blocks",
			fmt.Sprintf("Failed to block Monday morning (00:00 to 12:00) on interviewer calendars. Error: %s\n"+
				"%d blocks were created before the error.", err.Error(), len(createdIDs)))
		return err
	}
	b.log.Info("blocked calendars for next Monday morning", map[string]interface{}{
		"blocks_created": createdIDs,
		"calendars":      affected,
	})
	b.publish(ctx,
		fmt.Sprintf("SUCCESS: Monday morning blocked in %d calendars", len(affected)),
		fmt.Sprintf("Monday morning (00:00 to 12:00) was just blocked on the following calendars: %s.",
			strings.Join(affected, ", ")))
	return nil
}

// RunClear clears the tracked blocks and reports the outcome to the ops topic.
func (b *Blocker) RunClear(ctx context.Context) error {
	deleted, err := b.ClearBlocks(ctx)
	if err != nil {
		b.publish(ctx,
			"ERROR: failed to delete Monday morning calendar blocks",
			fmt.Sprintf("Failed to remove Monday morning blocks from interviewer calendars. Error: %s", err.Error()))
		return err
	}
	b.log.Info("cleared calendar blocks", map[string]interface{}{
		"blocks_deleted": deleted,
	})
	b.publish(ctx,
		"SUCCESS: Monday morning block removed from calendars",
		fmt.Sprintf("Deleted %d Monday morning blocks from interviewer calendars.", len(deleted)))
	return nil
}

func (b *Blocker) publish(ctx context.Context, subject, message string) {
	if b.topicARN == "" {
		return
	}
	if err := b.publisher.PublishToTopic(ctx, b.topicARN, "[interview-notifier] "+subject, message); err != nil {
		b.log.Error("failed to publish ops notification", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
	}
}
