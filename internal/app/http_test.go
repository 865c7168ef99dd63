package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"huddle/api/internal/store"
)

func newTestServer(t *testing.T, fs *fakeStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHTTPServer(newTestService(fs), "*").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func bearerFor(t *testing.T, svc *Service, userID string) string {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return "Bearer " + session.Token
}

func doJSON(t *testing.T, method, url, authorization string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("unexpected health body: %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d", resp.StatusCode)
	}
	if body["status"] != "ready" {
		t.Fatalf("unexpected ready body: %v", body)
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/projects", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestSessionProbeIsSoft(t *testing.T) {
	fs := &fakeStore{}
	srv := newTestServer(t, fs)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/session", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["authenticated"] != false {
		t.Fatalf("unexpected body: %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/session", "Bearer garbage", nil)
	if resp.StatusCode != http.StatusOK || body["authenticated"] != false {
		t.Fatalf("garbage token: status=%d body=%v", resp.StatusCode, body)
	}
}

func TestVoteEndpoint(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, DisplayName: "Dana", Role: "member"}, nil
		},
		castVoteFn: func(_ context.Context, _, _, voterID string, value int) (store.VoteResult, error) {
			if voterID != "usr_dana" || value != 1 {
				t.Fatalf("unexpected vote args: %s %d", voterID, value)
			}
			return store.VoteResult{Score: 5, Upvotes: 6, Downvotes: 1}, nil
		},
	}
	svc := newTestService(fs)
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer srv.Close()
	token := bearerFor(t, svc, "usr_dana")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/projects/prj_1/suggestions/sug_1/vote", token, map[string]any{"value": 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if body["score"] != float64(5) || body["upvotes"] != float64(6) {
		t.Fatalf("unexpected tally: %v", body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/projects/prj_1/suggestions/sug_1/vote", token, map[string]any{"value": 3})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range value, got %d: %v", resp.StatusCode, body)
	}
}

func TestPromoteEndpointConflict(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, DisplayName: "Avery", Role: "developer"}, nil
		},
		promoteSuggestionFn: func(context.Context, string, string, string) (store.BacklogItem, error) {
			return store.BacklogItem{}, store.ErrAlreadyPromoted
		},
	}
	svc := newTestService(fs)
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer srv.Close()
	token := bearerFor(t, svc, "usr_avery")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/projects/prj_1/suggestions/sug_1/promote", token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "ALREADY_PROMOTED" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestTaskEndpointStackForbidden(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, DisplayName: "Robin", Role: "developer", Stacks: []string{"frontend"}}, nil
		},
		stacksOfFn: func(context.Context, string) ([]string, error) {
			return []string{"frontend"}, nil
		},
	}
	svc := newTestService(fs)
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer srv.Close()
	token := bearerFor(t, svc, "usr_robin")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/projects/prj_1/backlog/bli_1/tasks", token, map[string]any{
		"stack": "backend",
		"title": "wire cache invalidation",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "STACK_FORBIDDEN" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	defer srv.Close()
	token := bearerFor(t, svc, "usr_x")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %v", resp.StatusCode, body)
	}
}
