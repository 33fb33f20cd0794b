/*
handlers.go - HTTP handlers for both API surfaces

PURPOSE:
  Translates HTTP requests into Manager operations and serializes the
  results. Two surfaces share the same handler state:

  Legacy tagged protocol:
    POST /                           Tagged-JSON request dispatch

  REST mirror:
    GET  /api/info                   Fresh snapshot + version
    GET  /api/info/changed?version=  Change-detection poll
    POST /api/timer/unlock           Spend a work credit
    POST /api/timer/lock             Start a break
    POST /api/requirements           Add a requirement for today
    POST /api/requirements/{id}/complete
    POST /api/deactivate             Suppress enforcement for N minutes
    GET  /api/report/today           Daily journal summary

ERROR HANDLING:
  The tagged protocol always answers 200 with {"type":"Error","msg":...} -
  its clients dispatch on the JSON tag, not the status code. The REST mirror
  maps engine errors to status codes: 404 unknown requirement, 409 rejected
  state transition, 400 bad input.

JOURNALING:
  After any operation the handler compares the cache version against the
  last journaled one and appends a transition row on change. Completions get
  their own row. Journaling is best-effort: a journal error is logged, never
  surfaced to the client.

CLOCK:
  The handler owns the wall clock (a func() engine.Instant) and stamps every
  Manager call with it. Tests inject a fixed clock.

SEE ALSO:
  - dto.go: Wire types
  - server.go: Router setup
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/focusgate/session-engine/engine"
	"github.com/focusgate/session-engine/report"
	"github.com/focusgate/session-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager *engine.Manager
	Journal *sqlite.Journal // nil disables journaling
	Clock   func() engine.Instant

	mu            sync.Mutex
	lastJournaled uint64
}

// NewHandler creates a handler backed by the real wall clock.
func NewHandler(manager *engine.Manager, journal *sqlite.Journal) *Handler {
	return &Handler{
		Manager: manager,
		Journal: journal,
		Clock:   engine.Now,
	}
}

func (h *Handler) now() engine.Instant {
	return h.Clock()
}

// observe journals the current snapshot if its version moved since the last
// journaled one. Best-effort.
func (h *Handler) observe(ctx context.Context, now engine.Instant) {
	if h.Journal == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	info, version, changed := h.Manager.InfoIfChanged(h.lastJournaled, now)
	if !changed {
		return
	}
	if err := h.Journal.RecordTransition(ctx, version, info, now); err != nil {
		log.Printf("[API] Failed to journal transition: %v", err)
		return
	}
	h.lastJournaled = version
}

func (h *Handler) journalCompletion(ctx context.Context, req engine.Requirement, now engine.Instant) {
	if h.Journal == nil {
		return
	}
	if err := h.Journal.RecordCompletion(ctx, req.ID, req.Name, now); err != nil {
		log.Printf("[API] Failed to journal completion: %v", err)
	}
}

// completeRequirement runs the shared completion flow for both surfaces.
func (h *Handler) completeRequirement(ctx context.Context, id uint64, now engine.Instant) error {
	// Capture the name before the mutation; the snapshot is the only place
	// it lives.
	var completed engine.Requirement
	for _, req := range h.Manager.InfoOnce(now).Requirements {
		if req.ID == id {
			completed = req
			break
		}
	}
	if err := h.Manager.CompleteRequirement(now, id); err != nil {
		return err
	}
	h.journalCompletion(ctx, completed, now)
	h.observe(ctx, now)
	return nil
}

// =============================================================================
// TAGGED PROTOCOL (POST /)
// =============================================================================

// HandleTagged dispatches one legacy protocol request.
func (h *Handler) HandleTagged(w http.ResponseWriter, r *http.Request) {
	var req TaggedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, errorResponse("Invalid request: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.dispatchTagged(r.Context(), req))
}

func (h *Handler) dispatchTagged(ctx context.Context, req TaggedRequest) TaggedResponse {
	now := h.now()
	defer h.observe(ctx, now)

	switch req.Type {
	case RequestGetInfo:
		info := h.Manager.InfoOnce(now)
		return infoResponse(info, h.Manager.Version())

	case RequestGetInfoIfChanged:
		info, version, changed := h.Manager.InfoIfChanged(req.Version, now)
		if !changed {
			return unchangedResponse(version)
		}
		return infoResponse(info, version)

	case RequestUnlockTimer:
		if err := h.Manager.UnlockTimer(now); err != nil {
			return errorResponse(err.Error())
		}
		return successResponse()

	case RequestLockTimer:
		if err := h.Manager.LockTimer(now); err != nil {
			return errorResponse(err.Error())
		}
		return successResponse()

	case RequestCompleteRequirement:
		if err := h.completeRequirement(ctx, req.ID, now); err != nil {
			return errorResponse(err.Error())
		}
		return successResponse()

	case RequestAddRequirement:
		if req.Name == "" || req.Due == nil {
			return errorResponse("AddRequirement needs a name and a due time")
		}
		h.Manager.AddRequirement(now, req.Name, *req.Due)
		return successResponse()

	case RequestDeactivate:
		if req.Minutes <= 0 {
			return errorResponse("Deactivate needs a positive number of minutes")
		}
		h.Manager.Deactivate(now, time.Duration(req.Minutes)*time.Minute)
		return successResponse()

	default:
		return errorResponse("Unknown request type: " + req.Type)
	}
}

// =============================================================================
// REST MIRROR
// =============================================================================

// GetInfo returns a fresh snapshot with its version.
func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	info := h.Manager.InfoOnce(now)
	h.observe(r.Context(), now)
	writeJSON(w, http.StatusOK, InfoDTO{Info: info, Version: h.Manager.Version()})
}

// GetInfoChanged compares the caller's version against the cache. 200 with a
// snapshot on change, 304 on no change.
func (h *Handler) GetInfoChanged(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseUint(r.URL.Query().Get("version"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid version parameter", err)
		return
	}
	now := h.now()
	info, newVersion, changed := h.Manager.InfoIfChanged(version, now)
	h.observe(r.Context(), now)
	if !changed {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, InfoDTO{Info: info, Version: newVersion})
}

// UnlockTimer spends a work credit.
func (h *Handler) UnlockTimer(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	err := h.Manager.UnlockTimer(now)
	h.observe(r.Context(), now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InfoDTO{Info: h.Manager.Info(), Version: h.Manager.Version()})
}

// LockTimer starts a break.
func (h *Handler) LockTimer(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	err := h.Manager.LockTimer(now)
	h.observe(r.Context(), now)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InfoDTO{Info: h.Manager.Info(), Version: h.Manager.Version()})
}

// CompleteRequirement marks one of today's requirements done.
func (h *Handler) CompleteRequirement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid requirement id", err)
		return
	}
	if err := h.completeRequirement(r.Context(), id, h.now()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InfoDTO{Info: h.Manager.Info(), Version: h.Manager.Version()})
}

// AddRequirement appends a requirement for today.
func (h *Handler) AddRequirement(w http.ResponseWriter, r *http.Request) {
	var body AddRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "Requirement name must not be empty", nil)
		return
	}
	now := h.now()
	h.Manager.AddRequirement(now, body.Name, body.Due)
	h.observe(r.Context(), now)
	writeJSON(w, http.StatusCreated, InfoDTO{Info: h.Manager.Info(), Version: h.Manager.Version()})
}

// Deactivate suppresses enforcement for the requested number of minutes.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var body DeactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Minutes <= 0 {
		writeError(w, http.StatusBadRequest, "Minutes must be positive", nil)
		return
	}
	now := h.now()
	h.Manager.Deactivate(now, time.Duration(body.Minutes)*time.Minute)
	h.observe(r.Context(), now)
	writeJSON(w, http.StatusOK, InfoDTO{Info: h.Manager.Info(), Version: h.Manager.Version()})
}

// GetTodayReport summarizes today's journal rows.
func (h *Handler) GetTodayReport(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		writeError(w, http.StatusNotFound, "Journaling is disabled", nil)
		return
	}
	now := h.now()
	info := h.Manager.InfoOnce(now)
	h.observe(r.Context(), now)

	from := report.DayStart(now)
	transitions, err := h.Journal.TransitionsBetween(r.Context(), from, now+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read journal", err)
		return
	}
	completions, err := h.Journal.CompletionsBetween(r.Context(), from, now+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read journal", err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(transitions, completions, info, from, now))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	}
}
