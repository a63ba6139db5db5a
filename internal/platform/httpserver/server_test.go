package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	agendaledger "govote/contexts/governance/agenda-ledger"
	agendahttp "govote/contexts/governance/agenda-ledger/transport/http"
	"govote/internal/platform/metrics"
)

// Far enough out that the wall clock used by the in-memory module never
// crosses it during a test run.
var serverExpiry = time.Date(2126, time.August, 1, 12, 0, 0, 0, time.UTC)

func newTestServer() *Server {
	return New(agendaledger.NewInMemoryModule(nil), metrics.NewCollector(), nil, ":0")
}

func doJSON(t *testing.T, server *Server, method string, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func initializeTestAgenda(t *testing.T, server *Server) {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/v1/agenda", nil, agendahttp.InitializeAgendaRequest{
		Title:         "budget 2026",
		Description:   "annual budget vote",
		ProposalNames: []string{"alpha", "beta", "gamma"},
		Expiry:        serverExpiry,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("initialize returned %d: %s", rec.Code, rec.Body.String())
	}
}

func voterHeaders(address string) map[string]string {
	return map[string]string{"X-Sender-Address": address}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) agendahttp.ErrorResponse {
	t.Helper()
	var resp agendahttp.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestInitializeAgendaEndpoint(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	rec := doJSON(t, server, http.MethodPost, "/v1/agenda", nil, agendahttp.InitializeAgendaRequest{
		Title:         "second",
		ProposalNames: []string{"x"},
		Expiry:        serverExpiry,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second initialize returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "agenda_exists" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestInitializeAgendaRejectsInvalidBody(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/agenda", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid body returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "invalid_json" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestCastVoteEndpoint(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", voterHeaders("acc-1"), agendahttp.CastVoteRequest{ProposalID: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("cast vote returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp agendahttp.CastVoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ProposalID != 1 || resp.Name != "beta" || resp.VoteCount != 1 || resp.Changed {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/agenda/votes", voterHeaders("acc-1"), agendahttp.CastVoteRequest{ProposalID: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("switch vote returned %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Changed || resp.ProposalID != 2 {
		t.Fatalf("switch not reported: %+v", resp)
	}
}

func TestCastVoteRequiresSenderHeader(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", nil, agendahttp.CastVoteRequest{ProposalID: 0})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing sender returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "missing_sender" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestCastVoteDomainErrorMapping(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	cases := []struct {
		name     string
		headers  map[string]string
		proposal uint8
		status   int
		code     string
	}{
		{
			name:     "unknown proposal",
			headers:  voterHeaders("acc-1"),
			proposal: 9,
			status:   http.StatusNotFound,
			code:     "proposal_not_found",
		},
		{
			name: "contract sender",
			headers: map[string]string{
				"X-Sender-Address": "con-1",
				"X-Sender-Kind":    "contract",
			},
			proposal: 0,
			status:   http.StatusForbidden,
			code:     "invalid_sender",
		},
		{
			name: "after deadline",
			headers: map[string]string{
				"X-Sender-Address": "acc-1",
				"X-Observed-Time":  serverExpiry.Add(time.Minute).Format(time.RFC3339),
			},
			proposal: 0,
			status:   http.StatusGone,
			code:     "expired",
		},
	}
	for _, tc := range cases {
		rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", tc.headers, agendahttp.CastVoteRequest{ProposalID: tc.proposal})
		if rec.Code != tc.status {
			t.Fatalf("%s: returned %d, want %d", tc.name, rec.Code, tc.status)
		}
		if resp := decodeError(t, rec); resp.Code != tc.code {
			t.Fatalf("%s: error code %q, want %q", tc.name, resp.Code, tc.code)
		}
	}
}

func TestCastVoteRejectsMalformedObservedTime(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	headers := map[string]string{
		"X-Sender-Address": "acc-1",
		"X-Observed-Time":  "yesterday",
	}
	rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", headers, agendahttp.CastVoteRequest{ProposalID: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed time returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "invalid_observed_time" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestCancelVoteEndpoint(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	rec := doJSON(t, server, http.MethodDelete, "/v1/agenda/votes", voterHeaders("acc-1"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cancel before voting returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "voter_not_found" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}

	if rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", voterHeaders("acc-1"), agendahttp.CastVoteRequest{ProposalID: 0}); rec.Code != http.StatusOK {
		t.Fatalf("vote returned %d", rec.Code)
	}
	if rec := doJSON(t, server, http.MethodDelete, "/v1/agenda/votes", voterHeaders("acc-1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("cancel returned %d", rec.Code)
	}
	rec = doJSON(t, server, http.MethodDelete, "/v1/agenda/votes", voterHeaders("acc-1"), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "not_voted" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestTallyAndViewEndpoints(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)

	// Two voters on proposal 0, one on proposal 1.
	for i, proposal := range []uint8{0, 0, 1} {
		headers := voterHeaders(fmt.Sprintf("acc-%d", i+1))
		if rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", headers, agendahttp.CastVoteRequest{ProposalID: proposal}); rec.Code != http.StatusOK {
			t.Fatalf("vote %d returned %d", i, rec.Code)
		}
	}

	rec := doJSON(t, server, http.MethodPost, "/v1/agenda/tally", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tally returned %d: %s", rec.Code, rec.Body.String())
	}
	var tally agendahttp.TallyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if tally.Status != "finished" || len(tally.WinningIDs) != 1 || tally.WinningIDs[0] != 0 {
		t.Fatalf("unexpected tally: %+v", tally)
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/agenda/tally", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second tally returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "already_finished" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/agenda", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view returned %d", rec.Code)
	}
	var view agendahttp.ViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Status != "finished" {
		t.Fatalf("view status %q", view.Status)
	}
	if len(view.Voters) != 3 || view.Voters[0].Address != "acc-1" {
		t.Fatalf("unexpected voters: %+v", view.Voters)
	}
	if len(view.WinningIDs) != 1 || view.WinningIDs[0] != 0 {
		t.Fatalf("unexpected winners: %v", view.WinningIDs)
	}
	if view.Proposals[0].VoteCount != 2 || view.Proposals[1].VoteCount != 1 {
		t.Fatalf("unexpected counts: %+v", view.Proposals)
	}
}

func TestViewBeforeInitializationReturnsNotFound(t *testing.T) {
	server := newTestServer()
	rec := doJSON(t, server, http.MethodGet, "/v1/agenda", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("view returned %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "agenda_not_found" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	server := newTestServer()
	initializeTestAgenda(t, server)
	if rec := doJSON(t, server, http.MethodPost, "/v1/agenda/votes", voterHeaders("acc-1"), agendahttp.CastVoteRequest{ProposalID: 0}); rec.Code != http.StatusOK {
		t.Fatalf("vote returned %d", rec.Code)
	}

	rec := doJSON(t, server, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("govote_votes_cast_total")) {
		t.Fatalf("vote counter missing from metrics output")
	}
}
