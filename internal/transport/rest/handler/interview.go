package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"esgadvisor/internal/catalog"
	"esgadvisor/internal/model"
	"esgadvisor/internal/service"
	"esgadvisor/internal/transport/rest/middleware"
)

// InterviewHandler handles interview endpoints
type InterviewHandler struct {
	interviewSvc *service.InterviewService
	authSvc      *service.AuthService
}

// NewInterviewHandler creates a new interview handler
func NewInterviewHandler(interviewSvc *service.InterviewService, authSvc *service.AuthService) *InterviewHandler {
	return &InterviewHandler{
		interviewSvc: interviewSvc,
		authSvc:      authSvc,
	}
}

// Start handles POST /v1/interviews
func (h *InterviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	state, err := h.interviewSvc.Start(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := h.authSvc.GenerateSessionToken(state.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue session token")
		return
	}

	prompt, err := h.interviewSvc.Current(r.Context(), state.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, model.StartInterviewResponse{
		SessionID: state.SessionID,
		Token:     token,
		Greeting:  catalog.Greeting,
		Prompt:    prompt,
	})
}

// CurrentPrompt handles GET /v1/interviews/{id}/prompt
func (h *InterviewHandler) CurrentPrompt(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	prompt, err := h.interviewSvc.Current(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prompt)
}

// SubmitAnswer handles POST /v1/interviews/{id}/answers
func (h *InterviewHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req model.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.interviewSvc.SubmitAnswer(r.Context(), sessionID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Finalize handles POST /v1/interviews/{id}/profile
func (h *InterviewHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	profile, err := h.interviewSvc.Finalize(r.Context(), sessionID)
	if err != nil {
		if profile != nil {
			// The profile was computed; only its persistence failed.
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"profile":        profile,
				"persistWarning": err.Error(),
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// Transcript handles GET /v1/interviews/{id}/transcript
func (h *InterviewHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	transcript, err := h.interviewSvc.Transcript(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"transcript": transcript})
}

// writeServiceError maps the engine's error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var parseErr *model.ProfileParseError

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &parseErr), errors.Is(err, model.ErrMalformedVerdict):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrOracleTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, model.ErrOracleFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
