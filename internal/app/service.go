package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"huddle/api/internal/attach"
	"huddle/api/internal/auth"
	"huddle/api/internal/authpw"
	"huddle/api/internal/config"
	"huddle/api/internal/rbac"
	"huddle/api/internal/search"
	"huddle/api/internal/store"
	"huddle/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	Stacks       []string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	Ping(ctx context.Context) error
	GetUserByID(context.Context, string) (store.User, error)
	StacksOf(context.Context, string) ([]string, error)
	SetUserStacks(context.Context, string, []string) error
	SetUserRole(context.Context, string, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	CreateProject(context.Context, store.Project) (store.Project, error)
	ListProjectsForUser(context.Context, string) ([]store.Project, error)
	GetProject(context.Context, string) (store.Project, error)
	IsMember(context.Context, string, string) (bool, error)
	AddMember(context.Context, store.Membership) error
	RemoveMember(context.Context, string, string) error
	ListMembers(context.Context, string) ([]store.User, error)
	InsertSuggestion(context.Context, store.Suggestion) (store.Suggestion, error)
	ListSuggestions(context.Context, string) ([]store.Suggestion, error)
	GetSuggestion(context.Context, string, string) (store.Suggestion, error)
	UpdateSuggestion(context.Context, string, string, string, string) (store.Suggestion, error)
	DeleteSuggestion(context.Context, string, string) error
	CastVote(context.Context, string, string, string, int) (store.VoteResult, error)
	PromoteSuggestion(context.Context, string, string, string) (store.BacklogItem, error)
	RecomputeProgress(context.Context, string, string) (store.Progress, error)
	InsertBacklogItem(context.Context, store.BacklogItem) (store.BacklogItem, error)
	ListBacklogItems(context.Context, string) ([]store.BacklogItem, error)
	GetBacklogItem(context.Context, string, string) (store.BacklogItem, error)
	UpdateBacklogItemMeta(context.Context, string, string, string, string, string, string) (store.BacklogItem, error)
	CreateTask(context.Context, string, store.Task) (store.Task, store.Progress, error)
	UpdateTask(context.Context, string, string, string, store.TaskUpdate) (store.Task, store.Progress, error)
	DeleteTask(context.Context, string, string, string) (store.Progress, error)
	ListTasks(context.Context, string) ([]store.Task, error)
	GetTask(context.Context, string, string) (store.Task, error)
	InsertAttachment(context.Context, store.Attachment) (store.Attachment, error)
	ListAttachments(context.Context, string, string) ([]store.Attachment, error)
	GetAttachment(context.Context, string, string, string) (store.Attachment, error)
	DeleteAttachment(context.Context, string, string, string) error
}

// sessionStore is the refresh-token backend. Satisfied by both the Postgres
// store and the Redis session store, chosen at startup.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	authpw   *authpw.Service
	search   *search.Service
	attach   *attach.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, authSvc *authpw.Service, searchSvc *search.Service, attachSvc *attach.Service) *Service {
	if sessions == nil {
		sessions = dataStore
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		authpw:   authSvc,
		search:   searchSvc,
		attach:   attachSvc,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// CreateSession issues an access/refresh token pair for a signed-in user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	// The Redis backend only stores the user id; reload the full record so
	// role and stacks are current.
	full, err := s.store.GetUserByID(ctx, user.ID)
	if err == nil {
		user = full
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		Stacks:       user.Stacks,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		Stacks:    user.Stacks,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// Me returns the caller's profile with their global stack assignment.
func (s *Service) Me(ctx context.Context, session Session) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":     user.ID,
		"name":   user.DisplayName,
		"email":  user.Email,
		"role":   user.Role,
		"stacks": nonNilStrings(user.Stacks),
	}, nil
}

// SetUserStacks replaces a user's global stack assignment. Admin only.
func (s *Service) SetUserStacks(ctx context.Context, session Session, userID string, stacks []string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	seen := map[string]struct{}{}
	cleaned := make([]string, 0, len(stacks))
	for _, stack := range stacks {
		stack = strings.TrimSpace(stack)
		if !rbac.ValidStack(stack) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stack: "+stack, nil)
		}
		if _, dup := seen[stack]; dup {
			continue
		}
		seen[stack] = struct{}{}
		cleaned = append(cleaned, stack)
	}
	if err := s.store.SetUserStacks(ctx, userID, cleaned); err != nil {
		return nil, err
	}
	return map[string]any{"userId": userID, "stacks": cleaned}, nil
}

// SetUserRole changes a user's global role. Admin only.
func (s *Service) SetUserRole(ctx context.Context, session Session, userID, role string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if rbac.Normalize(role) != rbac.Role(role) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown role: "+role, nil)
	}
	if err := s.store.SetUserRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return map[string]any{"userId": userID, "role": role}, nil
}

func (s *Service) CreateProject(ctx context.Context, session Session, name, summary string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	project, err := s.store.CreateProject(ctx, store.Project{
		ID:        util.NewID("prj"),
		Name:      name,
		Summary:   strings.TrimSpace(summary),
		CreatedBy: session.UserID,
	})
	if err != nil {
		return nil, err
	}
	return projectPayload(project), nil
}

func (s *Service) ListProjects(ctx context.Context, session Session) ([]map[string]any, error) {
	projects, err := s.store.ListProjectsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		items = append(items, projectPayload(project))
	}
	return items, nil
}

func (s *Service) GetProject(ctx context.Context, session Session, projectID string) (map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return projectPayload(project), nil
}

func (s *Service) AddMember(ctx context.Context, session Session, projectID, userID string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.AddMember(ctx, store.Membership{
		ProjectID: projectID,
		UserID:    userID,
		AddedBy:   session.UserID,
	}); err != nil {
		return nil, err
	}
	return map[string]any{"projectId": projectID, "userId": userID}, nil
}

func (s *Service) RemoveMember(ctx context.Context, session Session, projectID, userID string) error {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.store.RemoveMember(ctx, projectID, userID)
}

func (s *Service) ListMembers(ctx context.Context, session Session, projectID string) ([]map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(members))
	for _, member := range members {
		items = append(items, map[string]any{
			"id":     member.ID,
			"name":   member.DisplayName,
			"role":   member.Role,
			"stacks": nonNilStrings(member.Stacks),
		})
	}
	return items, nil
}

func (s *Service) Search(ctx context.Context, session Session, text, filterType, projectID string, limit, offset int) (search.Response, error) {
	if projectID == "" {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "projectId is required", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return search.Response{}, err
	}
	return s.search.Search(search.Query{
		Text:            text,
		FilterType:      search.ResultType(filterType),
		FilterProjectID: projectID,
		Limit:           limit,
		Offset:          offset,
	}), nil
}

// requireMember checks project membership. Admins see every project.
func (s *Service) requireMember(ctx context.Context, session Session, projectID string) error {
	if rbac.Normalize(session.Role) == rbac.RoleAdmin {
		return nil
	}
	member, err := s.store.IsMember(ctx, session.UserID, projectID)
	if err != nil {
		return err
	}
	if !member {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Not a member of this project", nil)
	}
	return nil
}

func projectPayload(project store.Project) map[string]any {
	return map[string]any{
		"id":        project.ID,
		"name":      project.Name,
		"summary":   project.Summary,
		"createdBy": project.CreatedBy,
		"createdAt": project.CreatedAt,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
