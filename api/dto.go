/*
dto.go - Wire types for both API surfaces

PURPOSE:
  Defines the JSON structures for the two ways clients talk to the daemon:

  1. The tagged single-endpoint protocol (POST /): every request body is
     {"type": "...", ...} and every response is {"type": "Info"|"Success"|
     "Error"|"Unchanged", ...}. Existing poll clients depend on this shape.

  2. The REST mirror under /api: plain request bodies, snapshot or error
     responses per route.

  The snapshot itself (engine.CurrentInfo) marshals directly; instants are
  Unix seconds on the wire so clients can sort and compare them.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Route setup
*/
package api

import (
	"github.com/focusgate/session-engine/engine"
)

// =============================================================================
// TAGGED PROTOCOL (POST /)
// =============================================================================

// TaggedRequest is the union of all legacy protocol requests. Type selects
// the operation; the remaining fields are read per type.
type TaggedRequest struct {
	Type string `json:"type"`

	// CompleteRequirement
	ID uint64 `json:"id,omitempty"`

	// AddRequirement
	Name string             `json:"name,omitempty"`
	Due  *engine.HourMinute `json:"due,omitempty"`

	// Deactivate
	Minutes int64 `json:"minutes,omitempty"`

	// GetInfoIfChanged
	Version uint64 `json:"version,omitempty"`
}

const (
	RequestGetInfo             = "GetInfo"
	RequestGetInfoIfChanged    = "GetInfoIfChanged"
	RequestUnlockTimer         = "UnlockTimer"
	RequestLockTimer           = "LockTimer"
	RequestCompleteRequirement = "CompleteRequirement"
	RequestAddRequirement      = "AddRequirement"
	RequestDeactivate          = "Deactivate"
)

// TaggedResponse is the union of all legacy protocol responses.
type TaggedResponse struct {
	Type    string              `json:"type"`
	Info    *engine.CurrentInfo `json:"info,omitempty"`
	Version uint64              `json:"version,omitempty"`
	Msg     string              `json:"msg,omitempty"`
}

func successResponse() TaggedResponse {
	return TaggedResponse{Type: "Success"}
}

func infoResponse(info engine.CurrentInfo, version uint64) TaggedResponse {
	return TaggedResponse{Type: "Info", Info: &info, Version: version}
}

func unchangedResponse(version uint64) TaggedResponse {
	return TaggedResponse{Type: "Unchanged", Version: version}
}

func errorResponse(msg string) TaggedResponse {
	return TaggedResponse{Type: "Error", Msg: msg}
}

// =============================================================================
// REST MIRROR (/api)
// =============================================================================

// AddRequirementRequest is the body of POST /api/requirements.
type AddRequirementRequest struct {
	Name string            `json:"name"`
	Due  engine.HourMinute `json:"due"`
}

// DeactivateRequest is the body of POST /api/deactivate.
type DeactivateRequest struct {
	Minutes int64 `json:"minutes"`
}

// InfoDTO wraps a snapshot with its cache version for REST clients.
type InfoDTO struct {
	Info    engine.CurrentInfo `json:"info"`
	Version uint64             `json:"version"`
}

// ErrorResponse is the REST error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
