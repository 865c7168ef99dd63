package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"huddle/api/internal/config"
	"huddle/api/internal/store"
)

type fakeStore struct {
	getUserByIDFn           func(context.Context, string) (store.User, error)
	stacksOfFn              func(context.Context, string) ([]string, error)
	isMemberFn              func(context.Context, string, string) (bool, error)
	getSuggestionFn         func(context.Context, string, string) (store.Suggestion, error)
	updateSuggestionFn      func(context.Context, string, string, string, string) (store.Suggestion, error)
	deleteSuggestionFn      func(context.Context, string, string) error
	castVoteFn              func(context.Context, string, string, string, int) (store.VoteResult, error)
	promoteSuggestionFn     func(context.Context, string, string, string) (store.BacklogItem, error)
	recomputeProgressFn     func(context.Context, string, string) (store.Progress, error)
	createTaskFn            func(context.Context, string, store.Task) (store.Task, store.Progress, error)
	updateTaskFn            func(context.Context, string, string, string, store.TaskUpdate) (store.Task, store.Progress, error)
	deleteTaskFn            func(context.Context, string, string, string) (store.Progress, error)
	getTaskFn               func(context.Context, string, string) (store.Task, error)
	insertSuggestionFn      func(context.Context, store.Suggestion) (store.Suggestion, error)
	insertBacklogItemFn     func(context.Context, store.BacklogItem) (store.BacklogItem, error)
	getBacklogItemFn        func(context.Context, string, string) (store.BacklogItem, error)
	updateBacklogItemMetaFn func(context.Context, string, string, string, string, string, string) (store.BacklogItem, error)
	setUserStacksFn         func(context.Context, string, []string) error
	setUserRoleFn           func(context.Context, string, string) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "User", Role: "member"}, nil
}
func (f *fakeStore) StacksOf(ctx context.Context, userID string) ([]string, error) {
	if f.stacksOfFn != nil {
		return f.stacksOfFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) SetUserStacks(ctx context.Context, userID string, stacks []string) error {
	if f.setUserStacksFn != nil {
		return f.setUserStacksFn(ctx, userID, stacks)
	}
	return nil
}
func (f *fakeStore) SetUserRole(ctx context.Context, userID, role string) error {
	if f.setUserRoleFn != nil {
		return f.setUserRoleFn(ctx, userID, role)
	}
	return nil
}
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error  { return nil }
func (f *fakeStore) IsAccessTokenRevoked(context.Context, string) (bool, error) { return false, nil }
func (f *fakeStore) SaveRefreshSession(context.Context, string, string, time.Time) error {
	return nil
}
func (f *fakeStore) LookupRefreshSession(context.Context, string) (store.User, error) {
	return store.User{}, store.ErrNotFound
}
func (f *fakeStore) RevokeRefreshSession(context.Context, string) error { return nil }
func (f *fakeStore) CreateProject(ctx context.Context, project store.Project) (store.Project, error) {
	return project, nil
}
func (f *fakeStore) ListProjectsForUser(context.Context, string) ([]store.Project, error) {
	return nil, nil
}
func (f *fakeStore) GetProject(ctx context.Context, projectID string) (store.Project, error) {
	return store.Project{ID: projectID, Name: "Atlas"}, nil
}
func (f *fakeStore) IsMember(ctx context.Context, userID, projectID string) (bool, error) {
	if f.isMemberFn != nil {
		return f.isMemberFn(ctx, userID, projectID)
	}
	return true, nil
}
func (f *fakeStore) AddMember(context.Context, store.Membership) error    { return nil }
func (f *fakeStore) RemoveMember(context.Context, string, string) error   { return nil }
func (f *fakeStore) ListMembers(context.Context, string) ([]store.User, error) {
	return nil, nil
}
func (f *fakeStore) InsertSuggestion(ctx context.Context, suggestion store.Suggestion) (store.Suggestion, error) {
	if f.insertSuggestionFn != nil {
		return f.insertSuggestionFn(ctx, suggestion)
	}
	return suggestion, nil
}
func (f *fakeStore) ListSuggestions(context.Context, string) ([]store.Suggestion, error) {
	return nil, nil
}
func (f *fakeStore) GetSuggestion(ctx context.Context, projectID, suggestionID string) (store.Suggestion, error) {
	if f.getSuggestionFn != nil {
		return f.getSuggestionFn(ctx, projectID, suggestionID)
	}
	return store.Suggestion{}, store.ErrNotFound
}
func (f *fakeStore) UpdateSuggestion(ctx context.Context, projectID, suggestionID, title, description string) (store.Suggestion, error) {
	if f.updateSuggestionFn != nil {
		return f.updateSuggestionFn(ctx, projectID, suggestionID, title, description)
	}
	return store.Suggestion{}, store.ErrNotFound
}
func (f *fakeStore) DeleteSuggestion(ctx context.Context, projectID, suggestionID string) error {
	if f.deleteSuggestionFn != nil {
		return f.deleteSuggestionFn(ctx, projectID, suggestionID)
	}
	return nil
}
func (f *fakeStore) CastVote(ctx context.Context, projectID, suggestionID, voterID string, value int) (store.VoteResult, error) {
	if f.castVoteFn != nil {
		return f.castVoteFn(ctx, projectID, suggestionID, voterID, value)
	}
	return store.VoteResult{}, store.ErrNotFound
}
func (f *fakeStore) PromoteSuggestion(ctx context.Context, projectID, suggestionID, actorID string) (store.BacklogItem, error) {
	if f.promoteSuggestionFn != nil {
		return f.promoteSuggestionFn(ctx, projectID, suggestionID, actorID)
	}
	return store.BacklogItem{}, store.ErrNotFound
}
func (f *fakeStore) RecomputeProgress(ctx context.Context, projectID, backlogItemID string) (store.Progress, error) {
	if f.recomputeProgressFn != nil {
		return f.recomputeProgressFn(ctx, projectID, backlogItemID)
	}
	return store.Progress{}, store.ErrNotFound
}
func (f *fakeStore) InsertBacklogItem(ctx context.Context, item store.BacklogItem) (store.BacklogItem, error) {
	if f.insertBacklogItemFn != nil {
		return f.insertBacklogItemFn(ctx, item)
	}
	return item, nil
}
func (f *fakeStore) ListBacklogItems(context.Context, string) ([]store.BacklogItem, error) {
	return nil, nil
}
func (f *fakeStore) GetBacklogItem(ctx context.Context, projectID, backlogItemID string) (store.BacklogItem, error) {
	if f.getBacklogItemFn != nil {
		return f.getBacklogItemFn(ctx, projectID, backlogItemID)
	}
	return store.BacklogItem{ID: backlogItemID, ProjectID: projectID, Stage: store.StageTodo, Priority: store.PriorityMedium}, nil
}
func (f *fakeStore) UpdateBacklogItemMeta(ctx context.Context, projectID, backlogItemID, title, summary, stage, priority string) (store.BacklogItem, error) {
	if f.updateBacklogItemMetaFn != nil {
		return f.updateBacklogItemMetaFn(ctx, projectID, backlogItemID, title, summary, stage, priority)
	}
	return store.BacklogItem{ID: backlogItemID, ProjectID: projectID, Title: title, Summary: summary, Stage: stage, Priority: priority}, nil
}
func (f *fakeStore) CreateTask(ctx context.Context, projectID string, task store.Task) (store.Task, store.Progress, error) {
	if f.createTaskFn != nil {
		return f.createTaskFn(ctx, projectID, task)
	}
	return task, store.Progress{}, nil
}
func (f *fakeStore) UpdateTask(ctx context.Context, projectID, backlogItemID, taskID string, upd store.TaskUpdate) (store.Task, store.Progress, error) {
	if f.updateTaskFn != nil {
		return f.updateTaskFn(ctx, projectID, backlogItemID, taskID, upd)
	}
	return store.Task{}, store.Progress{}, store.ErrNotFound
}
func (f *fakeStore) DeleteTask(ctx context.Context, projectID, backlogItemID, taskID string) (store.Progress, error) {
	if f.deleteTaskFn != nil {
		return f.deleteTaskFn(ctx, projectID, backlogItemID, taskID)
	}
	return store.Progress{}, store.ErrNotFound
}
func (f *fakeStore) ListTasks(context.Context, string) ([]store.Task, error) { return nil, nil }
func (f *fakeStore) GetTask(ctx context.Context, backlogItemID, taskID string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, backlogItemID, taskID)
	}
	return store.Task{}, store.ErrNotFound
}
func (f *fakeStore) InsertAttachment(ctx context.Context, attachment store.Attachment) (store.Attachment, error) {
	return attachment, nil
}
func (f *fakeStore) ListAttachments(context.Context, string, string) ([]store.Attachment, error) {
	return nil, nil
}
func (f *fakeStore) GetAttachment(context.Context, string, string, string) (store.Attachment, error) {
	return store.Attachment{}, store.ErrNotFound
}
func (f *fakeStore) DeleteAttachment(context.Context, string, string, string) error { return nil }

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
}

func newTestService(fs *fakeStore) *Service {
	return &Service{cfg: testConfig(), store: fs, sessions: fs}
}

func domainStatus(t *testing.T, err error) int {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Status
}

func TestCastVoteGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("viewer cannot vote", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.CastVote(ctx, Session{UserID: "usr_v", Role: "viewer"}, "prj_1", "sug_1", 1)
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("non-member cannot vote", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			isMemberFn: func(context.Context, string, string) (bool, error) { return false, nil },
		})
		_, err := svc.CastVote(ctx, Session{UserID: "usr_m", Role: "member"}, "prj_1", "sug_1", 1)
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("value out of range", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.CastVote(ctx, Session{UserID: "usr_m", Role: "member"}, "prj_1", "sug_1", 2)
		if status := domainStatus(t, err); status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", status)
		}
	})

	t.Run("tally passthrough", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			castVoteFn: func(_ context.Context, projectID, suggestionID, voterID string, value int) (store.VoteResult, error) {
				if projectID != "prj_1" || suggestionID != "sug_1" || voterID != "usr_m" || value != -1 {
					t.Fatalf("unexpected args: %s %s %s %d", projectID, suggestionID, voterID, value)
				}
				return store.VoteResult{Score: 2, Upvotes: 3, Downvotes: 1, PriorValue: 1}, nil
			},
		})
		payload, err := svc.CastVote(ctx, Session{UserID: "usr_m", Role: "member"}, "prj_1", "sug_1", -1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payload["score"] != 2 || payload["upvotes"] != 3 || payload["downvotes"] != 1 || payload["priorVote"] != 1 {
			t.Fatalf("unexpected payload: %v", payload)
		}
	})

	t.Run("unknown suggestion maps to 404", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.CastVote(ctx, Session{UserID: "usr_m", Role: "member"}, "prj_1", "sug_missing", 1)
		if status, _, _, _ := mapError(err); status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", status)
		}
	})
}

func TestPromoteGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("member cannot promote", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.Promote(ctx, Session{UserID: "usr_m", Role: "member"}, "prj_1", "sug_1")
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("developer promotes", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			promoteSuggestionFn: func(_ context.Context, projectID, suggestionID, actorID string) (store.BacklogItem, error) {
				sid := suggestionID
				return store.BacklogItem{
					ID:           "bli_1",
					ProjectID:    projectID,
					Origin:       store.OriginSuggestion,
					SuggestionID: &sid,
					Title:        "Cache the dashboard queries",
					Stage:        store.StageTodo,
					Priority:     store.PriorityMedium,
					CreatedBy:    actorID,
				}, nil
			},
			getSuggestionFn: func(context.Context, string, string) (store.Suggestion, error) {
				return store.Suggestion{ID: "sug_1", Status: store.SuggestionInProgress}, nil
			},
		})
		payload, err := svc.Promote(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "sug_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payload["origin"] != store.OriginSuggestion || payload["suggestionId"] != "sug_1" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	})

	t.Run("second promotion maps to conflict", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			promoteSuggestionFn: func(context.Context, string, string, string) (store.BacklogItem, error) {
				return store.BacklogItem{}, store.ErrAlreadyPromoted
			},
		})
		_, err := svc.Promote(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "sug_1")
		if status, code, _, _ := mapError(err); status != http.StatusConflict || code != "ALREADY_PROMOTED" {
			t.Fatalf("expected 409 ALREADY_PROMOTED, got %d %s", status, code)
		}
	})
}

func TestTaskStackGuard(t *testing.T) {
	ctx := context.Background()
	frontendOnly := func(context.Context, string) ([]string, error) {
		return []string{"frontend"}, nil
	}

	t.Run("developer without stack is forbidden", func(t *testing.T) {
		svc := newTestService(&fakeStore{stacksOfFn: frontendOnly})
		_, err := svc.CreateTask(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "bli_1", TaskInput{
			Stack: "backend",
			Title: "wire cache",
		})
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("admin bypasses stack assignment", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			stacksOfFn: func(context.Context, string) ([]string, error) {
				t.Fatal("admin path must not consult stack assignment")
				return nil, nil
			},
			createTaskFn: func(_ context.Context, projectID string, task store.Task) (store.Task, store.Progress, error) {
				task.ID = "tsk_1"
				return task, store.Progress{Backlog: 0}, nil
			},
		})
		payload, err := svc.CreateTask(ctx, Session{UserID: "usr_a", Role: "admin"}, "prj_1", "bli_1", TaskInput{
			Stack: "backend",
			Title: "wire cache",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payload["stack"] != "backend" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	})

	t.Run("member cannot touch tasks at all", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.CreateTask(ctx, Session{UserID: "usr_m", Role: "member"}, "prj_1", "bli_1", TaskInput{
			Stack: "frontend",
			Title: "tweak layout",
		})
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("unknown stack is a validation error", func(t *testing.T) {
		svc := newTestService(&fakeStore{stacksOfFn: frontendOnly})
		_, err := svc.CreateTask(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "bli_1", TaskInput{
			Stack: "mobile",
			Title: "ship the app",
		})
		if status := domainStatus(t, err); status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", status)
		}
	})

	t.Run("update checks the existing task's stack", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			stacksOfFn: frontendOnly,
			getTaskFn: func(context.Context, string, string) (store.Task, error) {
				return store.Task{ID: "tsk_1", Stack: "backend"}, nil
			},
		})
		done := true
		_, err := svc.UpdateTask(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "bli_1", "tsk_1", store.TaskUpdate{IsDone: &done})
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("re-tagging needs both stacks", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			stacksOfFn: frontendOnly,
			getTaskFn: func(context.Context, string, string) (store.Task, error) {
				return store.Task{ID: "tsk_1", Stack: "frontend"}, nil
			},
		})
		backend := "backend"
		_, err := svc.UpdateTask(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "bli_1", "tsk_1", store.TaskUpdate{Stack: &backend})
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("missing task is 404 before the stack check", func(t *testing.T) {
		svc := newTestService(&fakeStore{stacksOfFn: frontendOnly})
		done := true
		_, err := svc.UpdateTask(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "bli_1", "tsk_missing", store.TaskUpdate{IsDone: &done})
		if status, _, _, _ := mapError(err); status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", status)
		}
	})

	t.Run("progress travels with the mutation response", func(t *testing.T) {
		mirrored := 100
		svc := newTestService(&fakeStore{
			stacksOfFn: frontendOnly,
			getTaskFn: func(context.Context, string, string) (store.Task, error) {
				return store.Task{ID: "tsk_1", Stack: "frontend"}, nil
			},
			updateTaskFn: func(context.Context, string, string, string, store.TaskUpdate) (store.Task, store.Progress, error) {
				return store.Task{ID: "tsk_1", Stack: "frontend", IsDone: true}, store.Progress{Backlog: 100, Suggestion: &mirrored}, nil
			},
		})
		done := true
		payload, err := svc.UpdateTask(ctx, Session{UserID: "usr_d", Role: "developer"}, "prj_1", "bli_1", "tsk_1", store.TaskUpdate{IsDone: &done})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		progress, ok := payload["progress"].(map[string]any)
		if !ok {
			t.Fatalf("missing progress in payload: %v", payload)
		}
		if progress["backlogProgress"] != 100 || progress["suggestionProgress"] != 100 {
			t.Fatalf("unexpected progress: %v", progress)
		}
	})
}

func TestSuggestionAuthorRule(t *testing.T) {
	ctx := context.Background()
	owned := func(context.Context, string, string) (store.Suggestion, error) {
		return store.Suggestion{ID: "sug_1", ProjectID: "prj_1", AuthorID: "usr_author", Title: "Old"}, nil
	}

	t.Run("non-author cannot edit", func(t *testing.T) {
		svc := newTestService(&fakeStore{getSuggestionFn: owned})
		_, err := svc.UpdateSuggestion(ctx, Session{UserID: "usr_other", Role: "member"}, "prj_1", "sug_1", "New", "")
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("admin does not bypass the author rule", func(t *testing.T) {
		svc := newTestService(&fakeStore{getSuggestionFn: owned})
		_, err := svc.UpdateSuggestion(ctx, Session{UserID: "usr_admin", Role: "admin"}, "prj_1", "sug_1", "New", "")
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("author edit of a promoted suggestion maps to conflict", func(t *testing.T) {
		svc := newTestService(&fakeStore{
			getSuggestionFn: owned,
			updateSuggestionFn: func(context.Context, string, string, string, string) (store.Suggestion, error) {
				return store.Suggestion{}, store.ErrSuggestionLocked
			},
		})
		_, err := svc.UpdateSuggestion(ctx, Session{UserID: "usr_author", Role: "member"}, "prj_1", "sug_1", "New", "")
		if status, code, _, _ := mapError(err); status != http.StatusConflict || code != "SUGGESTION_LOCKED" {
			t.Fatalf("expected 409 SUGGESTION_LOCKED, got %d %s", status, code)
		}
	})

	t.Run("author deletes an unpromoted suggestion", func(t *testing.T) {
		svc := newTestService(&fakeStore{getSuggestionFn: owned})
		if err := svc.DeleteSuggestion(ctx, Session{UserID: "usr_author", Role: "member"}, "prj_1", "sug_1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSetUserStacksValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("non-admin forbidden", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.SetUserStacks(ctx, Session{UserID: "usr_d", Role: "developer"}, "usr_x", []string{"frontend"})
		if status := domainStatus(t, err); status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("unknown stack rejected", func(t *testing.T) {
		svc := newTestService(&fakeStore{})
		_, err := svc.SetUserStacks(ctx, Session{UserID: "usr_a", Role: "admin"}, "usr_x", []string{"mobile"})
		if status := domainStatus(t, err); status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", status)
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		var saved []string
		svc := newTestService(&fakeStore{
			setUserStacksFn: func(_ context.Context, _ string, stacks []string) error {
				saved = stacks
				return nil
			},
		})
		if _, err := svc.SetUserStacks(ctx, Session{UserID: "usr_a", Role: "admin"}, "usr_x", []string{"backend", "backend", "infra"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(saved) != 2 || saved[0] != "backend" || saved[1] != "infra" {
			t.Fatalf("unexpected stacks: %v", saved)
		}
	})
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"already promoted", store.ErrAlreadyPromoted, http.StatusConflict, "ALREADY_PROMOTED"},
		{"suggestion locked", store.ErrSuggestionLocked, http.StatusConflict, "SUGGESTION_LOCKED"},
		{"duplicate email", store.ErrDuplicateEmail, http.StatusConflict, "EMAIL_EXISTS"},
		{"wrapped not found", errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
		{"domain error", domainError(http.StatusForbidden, "STACK_FORBIDDEN", "nope", nil), http.StatusForbidden, "STACK_FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _, _ := mapError(tc.err)
			if status != tc.wantStatus || code != tc.wantCode {
				t.Fatalf("mapError(%v) = %d %s, want %d %s", tc.err, status, code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}
