package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	errs "interview-notifier/internal/common/errors"
)

// interviewURLSchema validates the link-setting request body.
const interviewURLSchema = `{
	"type": "object",
	"properties": {
		"appointment_id": {"type": "string", "pattern": "^[0-9]+$"},
		"interview_url": {"type": "string", "format": "uri"},
		"event_type": {"type": "string", "enum": ["booking", "rescheduling", "cancellation"]}
	},
	"required": ["appointment_id", "interview_url", "event_type"],
	"additionalProperties": false
}`

// appointmentsByTypeSchema validates the type-query request body.
const appointmentsByTypeSchema = `{
	"type": "object",
	"properties": {
		"type_ids": {
			"type": "array",
			"items": {"type": "string", "pattern": "^[0-9]+$"},
			"minItems": 1
		}
	},
	"required": ["type_ids"],
	"additionalProperties": false
}`

var (
	interviewURLValidator       = gojsonschema.NewStringLoader(interviewURLSchema)
	appointmentsByTypeValidator = gojsonschema.NewStringLoader(appointmentsByTypeSchema)
)

func validateBody(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errs.NewInvalidBodyError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return errs.NewInvalidBodyError(strings.Join(details, "; "))
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.log.Error("failed to encode response body", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// statusForError maps the error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch errs.CodeOf(err) {
	case errs.ErrCodeMalformedEvent, errs.ErrCodeUnsupportedAction, errs.ErrCodeRequestInvalidBody:
		return http.StatusBadRequest
	case errs.ErrCodeStoreConflict:
		return http.StatusConflict
	default:
		if errs.IsNotFound(err) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	payload := map[string]interface{}{
		"error":          err.Error(),
		"correlation_id": CorrelationID(r.Context()),
	}
	var se *errs.StandardError
	if errors.As(err, &se) {
		payload["code"] = se.Code
		payload["details"] = se.Details
		payload["retryable"] = se.Retryable
	}
	if status >= 500 {
		s.log.Error("request failed", map[string]interface{}{
			"path":           r.URL.Path,
			"status":         status,
			"error":          err.Error(),
			"correlation_id": CorrelationID(r.Context()),
		})
	}
	s.writeJSON(w, status, payload)
}

// handleInterviewEvent receives the scheduling source's webhook payload, a
// raw query-string-like blob, and runs it through the event processor.
func (s *Server) handleInterviewEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, errs.NewInvalidBodyError(err.Error()))
		return
	}
	outcome, err := s.svc.ProcessEvent(r.Context(), strings.TrimSpace(string(body)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

type interviewURLRequest struct {
	AppointmentID string `json:"appointment_id"`
	InterviewURL  string `json:"interview_url"`
	EventType     string `json:"event_type"`
}

func (s *Server) handleSetInterviewURL(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, errs.NewInvalidBodyError(err.Error()))
		return
	}
	if err := validateBody(interviewURLValidator, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req interviewURLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, errs.NewInvalidBodyError(err.Error()))
		return
	}
	results, err := s.svc.SetInterviewURL(r.Context(), req.AppointmentID, req.InterviewURL, req.EventType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notification_results": results,
		"correlation_id":       CorrelationID(r.Context()),
	})
}

type appointmentsByTypeRequest struct {
	TypeIDs []string `json:"type_ids"`
}

func (s *Server) handleAppointmentsByType(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, errs.NewInvalidBodyError(err.Error()))
		return
	}
	if err := validateBody(appointmentsByTypeValidator, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req appointmentsByTypeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, errs.NewInvalidBodyError(err.Error()))
		return
	}
	matches, err := s.svc.AppointmentsByType(r.Context(), req.TypeIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"appointments":   matches,
		"correlation_id": CorrelationID(r.Context()),
	})
}

func (s *Server) handleCreateBlocks(w http.ResponseWriter, r *http.Request) {
	if err := s.blocker.RunCreate(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearBlocks(w http.ResponseWriter, r *http.Request) {
	if err := s.blocker.RunClear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
