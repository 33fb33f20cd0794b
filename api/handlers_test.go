package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusgate/session-engine/api"
	"github.com/focusgate/session-engine/engine"
	"github.com/focusgate/session-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// fixture runs a server against a manager with a controllable clock.
type fixture struct {
	t       *testing.T
	server  *httptest.Server
	manager *engine.Manager
	now     engine.Instant
}

func day() engine.LocalDate {
	return engine.LocalDate{Year: 2025, Month: time.March, Day: 10}
}

func at(hour, minute int) engine.Instant {
	return engine.FromDateHourMinute(day(), engine.MustHourMinute(hour, minute))
}

func newFixture(t *testing.T) *fixture {
	cfg := engine.ManagerConfig{
		Requirements: []engine.RequirementTemplate{
			{Name: "morning review", Due: engine.MustHourMinute(8, 30)},
		},
		LockedTimeRanges: []engine.TimeRangeTemplate{
			{Start: hmPtr(22, 0), End: nil},
		},
		WorkPeriod:    25 * time.Minute,
		BreakDuration: 5 * time.Minute,
	}

	journal, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	f := &fixture{t: t, now: at(7, 0)}
	f.manager = engine.NewManager(cfg, f.now)

	handler := api.NewHandler(f.manager, journal)
	handler.Clock = func() engine.Instant { return f.now }

	f.server = httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(f.server.Close)
	return f
}

func hmPtr(hour, minute int) *engine.HourMinute {
	v := engine.MustHourMinute(hour, minute)
	return &v
}

func (f *fixture) tagged(body string) api.TaggedResponse {
	f.t.Helper()
	resp, err := http.Post(f.server.URL+"/", "application/json", bytes.NewBufferString(body))
	require.NoError(f.t, err)
	defer resp.Body.Close()
	require.Equal(f.t, http.StatusOK, resp.StatusCode, "tagged protocol always answers 200")

	var tr api.TaggedResponse
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&tr))
	return tr
}

func (f *fixture) rest(method, path string, body any) (*http.Response, []byte) {
	f.t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBufferString("{}")
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(f.t, err)
	return resp, buf.Bytes()
}

func (f *fixture) restInfo(method, path string, body any, wantStatus int) api.InfoDTO {
	f.t.Helper()
	resp, payload := f.rest(method, path, body)
	require.Equal(f.t, wantStatus, resp.StatusCode, "body: %s", payload)

	var dto api.InfoDTO
	require.NoError(f.t, json.Unmarshal(payload, &dto))
	return dto
}

// =============================================================================
// TAGGED PROTOCOL
// =============================================================================

func TestTagged_GetInfo(t *testing.T) {
	f := newFixture(t)

	resp := f.tagged(`{"type":"GetInfo"}`)
	require.Equal(t, "Info", resp.Type)
	require.NotNil(t, resp.Info)
	assert.Equal(t, engine.StateUnlockable, resp.Info.State)
	assert.Equal(t, engine.ReasonNoConstraints, resp.Info.Reason.Kind)
	assert.NotZero(t, resp.Version)
}

func TestTagged_UnknownTypeIsError(t *testing.T) {
	f := newFixture(t)

	resp := f.tagged(`{"type":"SelfDestruct"}`)
	assert.Equal(t, "Error", resp.Type)
	assert.Contains(t, resp.Msg, "SelfDestruct")
}

func TestTagged_TimerCycle(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Success", f.tagged(`{"type":"UnlockTimer"}`).Type)

	// Unlocking twice fails with a descriptive message.
	resp := f.tagged(`{"type":"UnlockTimer"}`)
	assert.Equal(t, "Error", resp.Type)
	assert.NotEmpty(t, resp.Msg)

	assert.Equal(t, "Success", f.tagged(`{"type":"LockTimer"}`).Type)
}

func TestTagged_CompleteRequirement(t *testing.T) {
	f := newFixture(t)
	id := f.manager.Info().Requirements[0].ID

	resp := f.tagged(`{"type":"CompleteRequirement","id":9999}`)
	assert.Equal(t, "Error", resp.Type)
	assert.Contains(t, resp.Msg, "not found")

	body, _ := json.Marshal(api.TaggedRequest{Type: "CompleteRequirement", ID: id})
	assert.Equal(t, "Success", f.tagged(string(body)).Type)

	resp = f.tagged(string(body))
	assert.Equal(t, "Error", resp.Type)
	assert.Contains(t, resp.Msg, "already been completed")
}

func TestTagged_GetInfoIfChanged(t *testing.T) {
	f := newFixture(t)

	// A first-time poller supplies version 0 and always gets a snapshot.
	resp := f.tagged(`{"type":"GetInfoIfChanged","version":0}`)
	require.Equal(t, "Info", resp.Type)
	version := resp.Version

	// Nothing moved: unchanged.
	body, _ := json.Marshal(api.TaggedRequest{Type: "GetInfoIfChanged", Version: version})
	resp = f.tagged(string(body))
	assert.Equal(t, "Unchanged", resp.Type)
	assert.Equal(t, version, resp.Version)

	// The clock crossing the due instant produces a new snapshot.
	f.now = at(8, 30)
	resp = f.tagged(string(body))
	require.Equal(t, "Info", resp.Type)
	assert.Equal(t, engine.StateLocked, resp.Info.State)
	assert.Greater(t, resp.Version, version)
}

func TestTagged_AddRequirementValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.tagged(`{"type":"AddRequirement","name":"no due"}`)
	assert.Equal(t, "Error", resp.Type)

	resp = f.tagged(`{"type":"AddRequirement","name":"standup","due":"10:00"}`)
	assert.Equal(t, "Success", resp.Type)

	info := f.tagged(`{"type":"GetInfo"}`)
	names := []string{}
	for _, req := range info.Info.Requirements {
		names = append(names, req.Name)
	}
	assert.Contains(t, names, "standup")
}

// =============================================================================
// REST MIRROR
// =============================================================================

func TestREST_GetInfo(t *testing.T) {
	f := newFixture(t)

	dto := f.restInfo(http.MethodGet, "/api/info", nil, http.StatusOK)
	assert.Equal(t, engine.StateUnlockable, dto.Info.State)
	assert.NotZero(t, dto.Version)
}

func TestREST_InfoChanged(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.rest(http.MethodGet, "/api/info/changed?version=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	dto := f.restInfo(http.MethodGet, "/api/info/changed?version=0", nil, http.StatusOK)

	resp, _ = f.rest(http.MethodGet, "/api/info/changed?version="+itoa(dto.Version), nil)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestREST_TimerStatusCodes(t *testing.T) {
	f := newFixture(t)

	// Locking with no running work period is a state conflict.
	resp, _ := f.rest(http.MethodPost, "/api/timer/lock", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	dto := f.restInfo(http.MethodPost, "/api/timer/unlock", nil, http.StatusOK)
	assert.Equal(t, engine.StateUnlocked, dto.Info.State)
	assert.False(t, dto.Info.Enforcing)

	resp, _ = f.rest(http.MethodPost, "/api/timer/unlock", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestREST_CompleteRequirement(t *testing.T) {
	f := newFixture(t)
	id := f.manager.Info().Requirements[0].ID

	resp, _ := f.rest(http.MethodPost, "/api/requirements/banana/complete", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.rest(http.MethodPost, "/api/requirements/9999/complete", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	dto := f.restInfo(http.MethodPost, "/api/requirements/"+itoa(id)+"/complete", nil, http.StatusOK)
	assert.True(t, dto.Info.Requirements[0].Complete)

	resp, _ = f.rest(http.MethodPost, "/api/requirements/"+itoa(id)+"/complete", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestREST_AddRequirement(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.rest(http.MethodPost, "/api/requirements", api.AddRequirementRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	dto := f.restInfo(http.MethodPost, "/api/requirements",
		api.AddRequirementRequest{Name: "standup", Due: engine.MustHourMinute(10, 0)},
		http.StatusCreated)
	require.Len(t, dto.Info.Requirements, 2)
	assert.Equal(t, "standup", dto.Info.Requirements[1].Name)
}

func TestREST_Deactivate(t *testing.T) {
	f := newFixture(t)
	f.now = at(9, 0) // requirement due, session enforced

	require.True(t, f.manager.InfoOnce(f.now).Enforcing)

	resp, _ := f.rest(http.MethodPost, "/api/deactivate", api.DeactivateRequest{Minutes: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	dto := f.restInfo(http.MethodPost, "/api/deactivate", api.DeactivateRequest{Minutes: 30}, http.StatusOK)
	assert.False(t, dto.Info.Enforcing)
	require.NotNil(t, dto.Info.DeactivatedUntil)
	assert.Equal(t, at(9, 30), *dto.Info.DeactivatedUntil)
}

func TestREST_TodayReport(t *testing.T) {
	f := newFixture(t)

	// Generate some history: initial snapshot, then the 08:30 lock.
	f.restInfo(http.MethodGet, "/api/info", nil, http.StatusOK)
	f.now = at(8, 30)
	f.restInfo(http.MethodGet, "/api/info", nil, http.StatusOK)

	resp, payload := f.rest(http.MethodGet, "/api/report/today", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", payload)

	var rep struct {
		Transitions int `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal(payload, &rep))
	assert.GreaterOrEqual(t, rep.Transitions, 2)
}

// =============================================================================
// HELPERS
// =============================================================================

func itoa(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
