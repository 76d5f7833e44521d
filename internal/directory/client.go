// Package directory talks to the participant directory API: user lookup by
// email, project listings and transactional email dispatch.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"interview-notifier/internal/common/config"
	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/httpclient"
	"interview-notifier/internal/common/logger"
)

// UserLookup is the outcome of resolving a participant email. Registered is
// false when the directory has no account for the address, which is an
// expected state rather than an error.
type UserLookup struct {
	Registered bool
	UserID     string
}

// Project is a research project as listed by the directory, with the tasks
// appointment types point at.
type Project struct {
	ID        string        `json:"id"`
	ShortName string        `json:"short_name"`
	Tasks     []ProjectTask `json:"tasks"`
}

type ProjectTask struct {
	ID string `json:"id"`
}

// UserProject links a user to a project under an anonymised per-project id.
type UserProject struct {
	ProjectID  string `json:"project_id"`
	AnonUserID string `json:"anon_project_specific_user_id"`
}

// EmailRequest is a templated transactional email dispatch.
type EmailRequest struct {
	TemplateName     string            `json:"template_name"`
	ToRecipientEmail string            `json:"to_recipient_email"`
	CustomProperties map[string]string `json:"custom_properties"`
}

type Client struct {
	baseURL string
	http    *httpclient.Client
	log     logger.Logger
}

func NewClient(cfg config.DirectoryConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpclient.NewClient(timeout),
		log:     log,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return 0, errs.NewDirectoryFailedError(path, err)
	}
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return 0, errs.NewDirectoryFailedError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, errs.NewDirectoryFailedError(path,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, errs.NewDirectoryFailedError(path, err)
		}
	}
	return resp.StatusCode, nil
}

// LookupUserByEmail resolves a participant email to a directory user id. A
// missing account is reported as Registered=false, not as an error, because
// interviews are open to unregistered participants.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (*UserLookup, error) {
	var user struct {
		ID string `json:"id"`
	}
	query := url.Values{"email": []string{email}}
	status, err := c.get(ctx, "/v1/user", query, &user)
	if status == http.StatusNotFound {
		c.log.Info("no directory account for participant email", map[string]interface{}{
			"email": email,
		})
		return &UserLookup{Registered: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &UserLookup{Registered: true, UserID: user.ID}, nil
}

// GetProjects lists all research projects and their tasks.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if _, err := c.get(ctx, "/v1/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetUserProjects lists the projects a user participates in, with the
// anonymised per-project ids.
func (c *Client) GetUserProjects(ctx context.Context, userID string) ([]UserProject, error) {
	var ups []UserProject
	query := url.Values{"user_id": []string{userID}}
	if _, err := c.get(ctx, "/v1/userprojects", query, &ups); err != nil {
		return nil, err
	}
	return ups, nil
}

// SendEmail dispatches a templated transactional email to one recipient.
func (c *Client) SendEmail(ctx context.Context, email EmailRequest) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return errs.NewEmailSendFailedError(email.ToRecipientEmail, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/send-transactional-email", bytes.NewReader(payload))
	if err != nil {
		return errs.NewEmailSendFailedError(email.ToRecipientEmail, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return errs.NewEmailSendFailedError(email.ToRecipientEmail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return errs.NewEmailSendFailedError(email.ToRecipientEmail,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(data)))
	}
	return nil
}
