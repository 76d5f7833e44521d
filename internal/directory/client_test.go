package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-notifier/internal/common/config"
	errs "interview-notifier/internal/common/errors"
	"interview-notifier/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.DirectoryConfig{BaseURL: srv.URL, Timeout: 5}, logger.NewNoOpLogger())
}

func TestLookupUserByEmail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/user", r.URL.Path)
		assert.Equal(t, "clive@example.com", r.URL.Query().Get("email"))
		json.NewEncoder(w).Encode(map[string]string{"id": "8518c7ed-1df4-45e9-8dc4-d49b57ae0663"})
	})

	client := newTestClient(t, handler)

	lookup, err := client.LookupUserByEmail(context.Background(), "clive@example.com")
	require.NoError(t, err)
	assert.True(t, lookup.Registered)
	assert.Equal(t, "8518c7ed-1df4-45e9-8dc4-d49b57ae0663", lookup.UserID)
}

func TestLookupUserByEmailUnregistered(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such user"}`, http.StatusNotFound)
	})

	client := newTestClient(t, handler)

	lookup, err := client.LookupUserByEmail(context.Background(), "stranger@example.com")
	require.NoError(t, err, "a missing account is not an error")
	assert.False(t, lookup.Registered)
	assert.Empty(t, lookup.UserID)
}

func TestLookupUserByEmailServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client := newTestClient(t, handler)

	_, err := client.LookupUserByEmail(context.Background(), "clive@example.com")
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeDirectoryFailed, errs.CodeOf(err))
}

func TestGetProjects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/project", r.URL.Path)
		json.NewEncoder(w).Encode([]Project{
			{
				ID:        "a099d03b-11e3-424c-9e97-d1c095f9823b",
				ShortName: "PSFU-06-A",
				Tasks:     []ProjectTask{{ID: "07af2fbe-5cd8-4a7f-a1f3-7f5f743ed7a1"}},
			},
		})
	})

	client := newTestClient(t, handler)

	projects, err := client.GetProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "PSFU-06-A", projects[0].ShortName)
	require.Len(t, projects[0].Tasks, 1)
}

func TestGetUserProjects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/userprojects", r.URL.Path)
		assert.Equal(t, "8518c7ed-1df4-45e9-8dc4-d49b57ae0663", r.URL.Query().Get("user_id"))
		json.NewEncoder(w).Encode([]UserProject{
			{ProjectID: "a099d03b-11e3-424c-9e97-d1c095f9823b", AnonUserID: "2c8bba57-58a9-4ac7-98e8-beb34f0692c1"},
		})
	})

	client := newTestClient(t, handler)

	ups, err := client.GetUserProjects(context.Background(), "8518c7ed-1df4-45e9-8dc4-d49b57ae0663")
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, "2c8bba57-58a9-4ac7-98e8-beb34f0692c1", ups[0].AnonUserID)
}

func TestSendEmail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/send-transactional-email", r.URL.Path)

		var req EmailRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "interview_booked_web_participant", req.TemplateName)
		assert.Equal(t, "clive@example.com", req.ToRecipientEmail)
		assert.Equal(t, "PSFU-06-A", req.CustomProperties["project_short_name"])

		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, handler)

	err := client.SendEmail(context.Background(), EmailRequest{
		TemplateName:     "interview_booked_web_participant",
		ToRecipientEmail: "clive@example.com",
		CustomProperties: map[string]string{
			"project_short_name": "PSFU-06-A",
			"user_first_name":    "Clive",
		},
	})
	require.NoError(t, err)
}

func TestSendEmailFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template render failed", http.StatusBadGateway)
	})

	client := newTestClient(t, handler)

	err := client.SendEmail(context.Background(), EmailRequest{
		TemplateName:     "interview_cancelled_participant",
		ToRecipientEmail: "clive@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeEmailSendFailed, errs.CodeOf(err))
}
