// Package scheduling talks to the external scheduling source: appointment
// lookups, appointment-type and calendar listings, webhook subscriptions and
// calendar blocks. All calls are authenticated with basic auth.
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"interview-notifier/internal/common/config"
	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/httpclient"
	"interview-notifier/internal/common/logger"
)

// blockTimeFormat is the timestamp layout the source expects on block writes.
const blockTimeFormat = "2006-01-02 03:04PM"

type Client struct {
	baseURL string
	userID  string
	apiKey  string
	http    *httpclient.Client
	cache   *TypeCache
	log     logger.Logger
}

// NewClient builds a source client. cache may be nil, in which case every
// appointment-type lookup goes to the source.
func NewClient(cfg config.SchedulingConfig, cache *TypeCache, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		userID:  cfg.UserID,
		apiKey:  cfg.APIKey,
		http:    httpclient.NewClient(timeout),
		cache:   cache,
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, errs.NewSourceCallFailedError(path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, errs.NewSourceCallFailedError(path, err)
	}
	req.SetBasicAuth(c.userID, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return 0, errs.NewSourceCallFailedError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		c.log.Warn("scheduling source call failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(data),
		})
		return resp.StatusCode, errs.NewSourceCallFailedError(path,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errs.NewSourceCallFailedError(path, err)
		}
	}
	return resp.StatusCode, nil
}

// GetAppointment fetches the live state of one appointment from the source.
func (c *Client) GetAppointment(ctx context.Context, appointmentID string) (*SourceAppointment, error) {
	var appt SourceAppointment
	status, err := c.do(ctx, http.MethodGet, "/appointments/"+appointmentID, nil, &appt)
	if status == http.StatusNotFound {
		return nil, errs.NewNotFoundError(errs.ErrCodeAppointmentNotFound, "appointment", appointmentID)
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// GetAppointmentTypes lists all appointment types, serving from the cache
// when a fresh listing is available.
func (c *Client) GetAppointmentTypes(ctx context.Context) ([]SourceAppointmentType, error) {
	if c.cache != nil {
		if types, ok := c.cache.Get(ctx); ok {
			return types, nil
		}
	}
	var types []SourceAppointmentType
	if _, err := c.do(ctx, http.MethodGet, "/appointment-types", nil, &types); err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, types)
	}
	return types, nil
}

// GetAppointmentType resolves one type by id. The source only exposes a full
// listing, so this indexes into GetAppointmentTypes.
func (c *Client) GetAppointmentType(ctx context.Context, typeID string) (*SourceAppointmentType, error) {
	types, err := c.GetAppointmentTypes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range types {
		if strconv.Itoa(types[i].ID) == typeID {
			return &types[i], nil
		}
	}
	return nil, errs.NewNotFoundError(errs.ErrCodeAppointmentTypeNotFound, "appointment type", typeID)
}

// GetCalendars lists all interviewer calendars at the source.
func (c *Client) GetCalendars(ctx context.Context) ([]SourceCalendar, error) {
	var calendars []SourceCalendar
	if _, err := c.do(ctx, http.MethodGet, "/calendars", nil, &calendars); err != nil {
		return nil, err
	}
	return calendars, nil
}

// ListWebhooks returns the source's current event subscriptions.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var hooks []Webhook
	if _, err := c.do(ctx, http.MethodGet, "/webhooks", nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// CreateWebhook subscribes target to the given source event.
func (c *Client) CreateWebhook(ctx context.Context, event, target string) (*Webhook, error) {
	body := map[string]string{
		"event":  event,
		"target": target,
	}
	var hook Webhook
	if _, err := c.do(ctx, http.MethodPost, "/webhooks", body, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteWebhook removes an event subscription.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID int) error {
	_, err := c.do(ctx, http.MethodDelete, "/webhooks/"+strconv.Itoa(webhookID), nil, nil)
	return err
}

// CreateBlock blocks off a period on a source calendar.
func (c *Client) CreateBlock(ctx context.Context, calendarID int, start, end time.Time, notes string) (*Block, error) {
	body := map[string]interface{}{
		"calendarID": calendarID,
		"start":      start.Format(blockTimeFormat),
		"end":        end.Format(blockTimeFormat),
		"notes":      notes,
	}
	var block Block
	if _, err := c.do(ctx, http.MethodPost, "/blocks", body, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// DeleteBlock removes a calendar block.
func (c *Client) DeleteBlock(ctx context.Context, blockID int) error {
	_, err := c.do(ctx, http.MethodDelete, "/blocks/"+strconv.Itoa(blockID), nil, nil)
	return err
}
