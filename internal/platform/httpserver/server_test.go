package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	rankingengine "scarab/contexts/opinion-markets/ranking-engine"
	"scarab/contexts/opinion-markets/ranking-engine/domain/entities"
	rankinghttp "scarab/contexts/opinion-markets/ranking-engine/transport/http"
)

const testAPIKey = "test-resolve-key"

var serverNow = time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)

func newTestServer() (rankingengine.Module, *Server) {
	module := rankingengine.NewInMemoryModule(nil, nil)
	module.Store.SetNow(serverNow)
	module.Store.SeedRanking(entities.Ranking{
		RankingID:  "ranking-1",
		Category:   "ai-agents",
		Title:      "Top AI Agents",
		ResolvesAt: time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC),
		IsActive:   true,
	}, []entities.Item{
		{RowID: "row-1", RankingID: "ranking-1", ItemID: "alpha", Name: "Alpha", CurrentScore: 50, Consensus: entities.ConsensusWeak},
		{RowID: "row-2", RankingID: "ranking-1", ItemID: "beta", Name: "Beta", CurrentScore: 50, Consensus: entities.ConsensusWeak},
	})
	server := New(module, testAPIKey, "scarab", nil, ":0")
	return module, server
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(recorder.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthEndpointReportsEngineSnapshot(t *testing.T) {
	_, server := newTestServer()
	handler := server.Handler()

	voteRecorder := doJSON(t, handler, http.MethodPost, "/api/rankings/ai-agents/vote", rankinghttp.SubmitVoteRequest{
		VoterAddress: "0xvoter",
		Rankings: []rankinghttp.RankingEntryRequest{
			{ItemID: "alpha", Rank: 1, Stake: 100},
			{ItemID: "beta", Rank: 2, Stake: 100},
		},
	}, nil)
	if voteRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", voteRecorder.Code)
	}

	recorder := doJSON(t, handler, http.MethodGet, "/api/rankings/health", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	health := decodeBody[rankinghttp.HealthResponse](t, recorder)
	if health.Status != "ok" || health.Service != "scarab" {
		t.Fatalf("unexpected health payload: %+v", health)
	}
	if health.ActiveRankings != 1 || health.UniqueVoters != 1 || health.TotalStaked != 200 {
		t.Fatalf("unexpected health counters: %+v", health)
	}
	// One week from the pinned clock to the round close.
	if health.NextResolutionInSeconds == nil || *health.NextResolutionInSeconds != 7*24*3600 {
		t.Fatalf("unexpected resolution countdown: %+v", health.NextResolutionInSeconds)
	}
}

func TestVoteAndCurrentRankingFlow(t *testing.T) {
	_, server := newTestServer()
	handler := server.Handler()

	voteRecorder := doJSON(t, handler, http.MethodPost, "/api/rankings/ai-agents/vote", rankinghttp.SubmitVoteRequest{
		VoterAddress: "0xvoter",
		Rankings: []rankinghttp.RankingEntryRequest{
			{ItemID: "alpha", Rank: 1, Stake: 100},
			{ItemID: "beta", Rank: 2, Stake: 100},
		},
	}, nil)
	if voteRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", voteRecorder.Code, voteRecorder.Body.String())
	}
	voteResp := decodeBody[rankinghttp.SubmitVoteResponse](t, voteRecorder)
	if len(voteResp.Entries) != 2 || voteResp.TotalStaked != 200 || voteResp.DroneEarned != 10 {
		t.Fatalf("unexpected vote response: %+v", voteResp)
	}

	viewRecorder := doJSON(t, handler, http.MethodGet, "/api/rankings/ai-agents", nil, nil)
	if viewRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", viewRecorder.Code)
	}
	view := decodeBody[rankinghttp.RankingResponse](t, viewRecorder)
	if view.Week != "2026-W07" || view.TotalVoters != 1 || len(view.Items) != 2 {
		t.Fatalf("unexpected ranking view: %+v", view)
	}
	if view.Items[0].ItemID != "alpha" || view.Items[0].CurrentRank != 1 {
		t.Fatalf("expected alpha ranked first, got %+v", view.Items[0])
	}
}

func TestVoteRejectsDuplicateRanks(t *testing.T) {
	_, server := newTestServer()
	recorder := doJSON(t, server.Handler(), http.MethodPost, "/api/rankings/ai-agents/vote", rankinghttp.SubmitVoteRequest{
		VoterAddress: "0xvoter",
		Rankings: []rankinghttp.RankingEntryRequest{
			{ItemID: "alpha", Rank: 1},
			{ItemID: "beta", Rank: 1},
		},
	}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	errResp := decodeBody[rankinghttp.ErrorResponse](t, recorder)
	if errResp.Code != "invalid_request" {
		t.Fatalf("unexpected error payload: %+v", errResp)
	}
}

func TestCurrentRankingUnknownCategoryIs404(t *testing.T) {
	_, server := newTestServer()
	recorder := doJSON(t, server.Handler(), http.MethodGet, "/api/rankings/unknown", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestResolveRequiresAPIKey(t *testing.T) {
	_, server := newTestServer()
	handler := server.Handler()

	missing := doJSON(t, handler, http.MethodPost, "/api/rankings/resolve", nil, nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", missing.Code)
	}
	wrong := doJSON(t, handler, http.MethodPost, "/api/rankings/resolve", nil, map[string]string{"X-Api-Key": "nope"})
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", wrong.Code)
	}
}

func TestResolveDryRunPreviewsWithoutClosing(t *testing.T) {
	module, server := newTestServer()
	handler := server.Handler()
	module.Store.SetNow(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC))

	recorder := doJSON(t, handler, http.MethodPost, "/api/rankings/resolve?dry_run=true", nil,
		map[string]string{"X-Api-Key": testAPIKey})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	preview := decodeBody[rankinghttp.PreviewBatchResponse](t, recorder)
	if !preview.DryRun || len(preview.Previews) != 1 {
		t.Fatalf("unexpected preview response: %+v", preview)
	}

	// The round stays open: a follow-up dry run still sees it due.
	again := doJSON(t, handler, http.MethodPost, "/api/rankings/resolve?dry_run=1", nil,
		map[string]string{"X-Api-Key": testAPIKey})
	if again.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", again.Code)
	}
	if repeat := decodeBody[rankinghttp.PreviewBatchResponse](t, again); len(repeat.Previews) != 1 {
		t.Fatalf("dry run must not close rounds: %+v", repeat)
	}
}

func TestResolveClosesDueRoundsAndServesHistory(t *testing.T) {
	module, server := newTestServer()
	handler := server.Handler()

	voteRecorder := doJSON(t, handler, http.MethodPost, "/api/rankings/ai-agents/vote", rankinghttp.SubmitVoteRequest{
		VoterAddress: "0xvoter",
		Rankings: []rankinghttp.RankingEntryRequest{
			{ItemID: "alpha", Rank: 1, Stake: 100},
			{ItemID: "beta", Rank: 2, Stake: 100},
		},
	}, nil)
	if voteRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", voteRecorder.Code)
	}

	module.Store.SetNow(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC))
	resolveRecorder := doJSON(t, handler, http.MethodPost, "/api/rankings/resolve", nil,
		map[string]string{"X-Api-Key": testAPIKey})
	if resolveRecorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resolveRecorder.Code, resolveRecorder.Body.String())
	}
	resolved := decodeBody[rankinghttp.ResolveResponse](t, resolveRecorder)
	if resolved.DryRun || len(resolved.Resolved) != 1 || len(resolved.Failed) != 0 {
		t.Fatalf("unexpected resolve response: %+v", resolved)
	}
	outcome := resolved.Resolved[0]
	if outcome.Week != "2026-W07" || outcome.VotersRewarded != 1 || !outcome.NextRankingCreated {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	resolvedView := doJSON(t, handler, http.MethodGet, "/api/rankings/ai-agents/resolved?week=2026-W07", nil, nil)
	if resolvedView.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resolvedView.Code)
	}
	settled := decodeBody[rankinghttp.ResolvedRankingResponse](t, resolvedView)
	if settled.Week != "2026-W07" || len(settled.FinalRankings) != 2 || settled.FinalRankings[0].ItemID != "alpha" {
		t.Fatalf("unexpected resolved view: %+v", settled)
	}

	history := doJSON(t, handler, http.MethodGet, "/api/rankings/history", nil, nil)
	if history.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", history.Code)
	}
	entries := decodeBody[rankinghttp.HistoryResponse](t, history)
	if len(entries.Entries) != 1 || entries.Entries[0].Week != "2026-W07" {
		t.Fatalf("unexpected history: %+v", entries)
	}

	predictions := doJSON(t, handler, http.MethodGet, "/api/users/0xvoter/predictions", nil, nil)
	if predictions.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", predictions.Code)
	}
	predicted := decodeBody[rankinghttp.PredictionsResponse](t, predictions)
	if len(predicted.Predictions) != 2 || !predicted.Predictions[0].Resolved {
		t.Fatalf("unexpected predictions: %+v", predicted)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, server := newTestServer()
	recorder := doJSON(t, server.Handler(), http.MethodGet, "/api/rankings/resolve", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	status := decodeBody[rankinghttp.StatusResponse](t, recorder)
	if status.ActiveRankings != 1 || status.NextResolutionAt == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
}
