package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role)
		VALUES ($1, $2, LOWER($3), $4, $5)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at
		FROM users WHERE email=LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	stacks, err := s.StacksOf(ctx, userID)
	if err != nil {
		return User{}, err
	}
	user.Stacks = stacks
	return user, nil
}

// StacksOf returns the user's global stack assignment.
func (s *PostgresStore) StacksOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stack FROM user_stacks WHERE user_id=$1 ORDER BY stack ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}
	defer rows.Close()

	stacks := make([]string, 0)
	for rows.Next() {
		var stack string
		if err := rows.Scan(&stack); err != nil {
			return nil, fmt.Errorf("scan stack: %w", err)
		}
		stacks = append(stacks, stack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stacks: %w", err)
	}
	return stacks, nil
}

func (s *PostgresStore) SetUserStacks(ctx context.Context, userID string, stacks []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set stacks: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_stacks WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear stacks: %w", err)
	}
	for _, stack := range stacks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_stacks (user_id, stack) VALUES ($1, $2)
			ON CONFLICT (user_id, stack) DO NOTHING
		`, userID, stack); err != nil {
			return fmt.Errorf("insert stack: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set stacks: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetUserRole(ctx context.Context, userID, role string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role=$2 WHERE id=$1`, userID, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	const query = `
		SELECT user_id FROM password_resets
		WHERE token = $1 AND used_at IS NULL AND expires_at > NOW()
	`
	var userID string
	err := s.db.QueryRowContext(ctx, query, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get password reset: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, project Project) (Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, fmt.Errorf("begin create project: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO projects (id, name, summary, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, project.ID, project.Name, project.Summary, project.CreatedBy).Scan(&project.CreatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO project_memberships (project_id, user_id, added_by)
		VALUES ($1, $2, $2)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`, project.ID, project.CreatedBy); err != nil {
		return Project{}, fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Project{}, fmt.Errorf("commit create project: %w", err)
	}
	return project, nil
}

func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.summary, p.created_by, p.created_at
		FROM projects p
		JOIN project_memberships pm ON pm.project_id = p.id
		WHERE pm.user_id=$1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.Name, &item.Summary, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, summary, created_by, created_at FROM projects WHERE id=$1
	`, projectID).Scan(&item.ID, &item.Name, &item.Summary, &item.CreatedBy, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return item, nil
}

// IsMember is the project-membership predicate consulted before any
// project-scoped operation.
func (s *PostgresStore) IsMember(ctx context.Context, userID, projectID string) (bool, error) {
	var member bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM project_memberships WHERE project_id=$1 AND user_id=$2)
	`, projectID, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return member, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, membership Membership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_memberships (project_id, user_id, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`, membership.ProjectID, membership.UserID, membership.AddedBy)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM project_memberships WHERE project_id=$1 AND user_id=$2
	`, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, projectID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.display_name, u.email, u.role
		FROM project_memberships pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id=$1
		ORDER BY u.display_name ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var item User
		if err := rows.Scan(&item.ID, &item.DisplayName, &item.Email, &item.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

const suggestionColumns = `s.id, s.project_id, s.author_id, u.display_name, s.title, s.description,
	s.status, s.progress_percent, s.score, s.upvotes_count, s.downvotes_count,
	s.backlog_item_id, s.locked_at, s.created_at, s.updated_at`

func scanSuggestion(row interface{ Scan(...any) error }) (Suggestion, error) {
	var item Suggestion
	err := row.Scan(
		&item.ID, &item.ProjectID, &item.AuthorID, &item.AuthorName, &item.Title, &item.Description,
		&item.Status, &item.ProgressPercent, &item.Score, &item.Upvotes, &item.Downvotes,
		&item.BacklogItemID, &item.LockedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertSuggestion(ctx context.Context, item Suggestion) (Suggestion, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suggestions (id, project_id, author_id, title, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, item.ID, item.ProjectID, item.AuthorID, item.Title, item.Description, SuggestionOpen).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Suggestion{}, fmt.Errorf("insert suggestion: %w", err)
	}
	item.Status = SuggestionOpen
	return item, nil
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, projectID string) ([]Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM suggestions s
		JOIN users u ON u.id = s.author_id
		WHERE s.project_id=$1
		ORDER BY s.score DESC, s.created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	items := make([]Suggestion, 0)
	for rows.Next() {
		item, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, projectID, suggestionID string) (Suggestion, error) {
	item, err := scanSuggestion(s.db.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM suggestions s
		JOIN users u ON u.id = s.author_id
		WHERE s.id=$1 AND s.project_id=$2
	`, suggestionID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("get suggestion: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertBacklogItem(ctx context.Context, item BacklogItem) (BacklogItem, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO backlog_items (id, project_id, origin, suggestion_id, title, summary, stage, priority, progress_percent, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		RETURNING created_at, updated_at
	`, item.ID, item.ProjectID, item.Origin, item.SuggestionID, item.Title, item.Summary, item.Stage, item.Priority, item.CreatedBy).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return BacklogItem{}, fmt.Errorf("insert backlog item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListBacklogItems(ctx context.Context, projectID string) ([]BacklogItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, origin, suggestion_id, title, summary, stage, priority, progress_percent, created_by, created_at, updated_at
		FROM backlog_items
		WHERE project_id=$1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list backlog items: %w", err)
	}
	defer rows.Close()

	items := make([]BacklogItem, 0)
	for rows.Next() {
		var item BacklogItem
		if err := rows.Scan(
			&item.ID, &item.ProjectID, &item.Origin, &item.SuggestionID, &item.Title, &item.Summary,
			&item.Stage, &item.Priority, &item.ProgressPercent, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan backlog item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backlog items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetBacklogItem(ctx context.Context, projectID, backlogItemID string) (BacklogItem, error) {
	var item BacklogItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, origin, suggestion_id, title, summary, stage, priority, progress_percent, created_by, created_at, updated_at
		FROM backlog_items
		WHERE id=$1 AND project_id=$2
	`, backlogItemID, projectID).Scan(
		&item.ID, &item.ProjectID, &item.Origin, &item.SuggestionID, &item.Title, &item.Summary,
		&item.Stage, &item.Priority, &item.ProgressPercent, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return BacklogItem{}, ErrNotFound
	}
	if err != nil {
		return BacklogItem{}, fmt.Errorf("get backlog item: %w", err)
	}
	return item, nil
}

// UpdateBacklogItemMeta edits the client-editable backlog fields. Progress is
// excluded on purpose: it is write-only by recomputation.
func (s *PostgresStore) UpdateBacklogItemMeta(ctx context.Context, projectID, backlogItemID, title, summary, stage, priority string) (BacklogItem, error) {
	var item BacklogItem
	err := s.db.QueryRowContext(ctx, `
		UPDATE backlog_items
		SET title=$3, summary=$4, stage=$5, priority=$6, updated_at=NOW()
		WHERE id=$1 AND project_id=$2
		RETURNING id, project_id, origin, suggestion_id, title, summary, stage, priority, progress_percent, created_by, created_at, updated_at
	`, backlogItemID, projectID, title, summary, stage, priority).Scan(
		&item.ID, &item.ProjectID, &item.Origin, &item.SuggestionID, &item.Title, &item.Summary,
		&item.Stage, &item.Priority, &item.ProgressPercent, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return BacklogItem{}, ErrNotFound
	}
	if err != nil {
		return BacklogItem{}, fmt.Errorf("update backlog item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, backlogItemID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, backlog_item_id, stack, title, description, is_done, done_at, order_index, created_at, updated_at
		FROM tasks
		WHERE backlog_item_id=$1
		ORDER BY order_index ASC, created_at ASC
	`, backlogItemID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(
			&item.ID, &item.BacklogItemID, &item.Stack, &item.Title, &item.Description,
			&item.IsDone, &item.DoneAt, &item.OrderIndex, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, backlogItemID, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, backlog_item_id, stack, title, description, is_done, done_at, order_index, created_at, updated_at
		FROM tasks
		WHERE id=$1 AND backlog_item_id=$2
	`, taskID, backlogItemID).Scan(
		&item.ID, &item.BacklogItemID, &item.Stack, &item.Title, &item.Description,
		&item.IsDone, &item.DoneAt, &item.OrderIndex, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertAttachment(ctx context.Context, item Attachment) (Attachment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attachments (id, project_id, suggestion_id, file_name, content_type, size, object_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, item.ID, item.ProjectID, item.SuggestionID, item.FileName, item.ContentType, item.Size, item.ObjectKey, item.UploadedBy).
		Scan(&item.CreatedAt)
	if err != nil {
		return Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, projectID, suggestionID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, suggestion_id, file_name, content_type, size, object_key, uploaded_by, created_at
		FROM attachments
		WHERE project_id=$1 AND suggestion_id=$2
		ORDER BY created_at ASC
	`, projectID, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var item Attachment
		if err := rows.Scan(
			&item.ID, &item.ProjectID, &item.SuggestionID, &item.FileName, &item.ContentType,
			&item.Size, &item.ObjectKey, &item.UploadedBy, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, projectID, suggestionID, attachmentID string) (Attachment, error) {
	var item Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, suggestion_id, file_name, content_type, size, object_key, uploaded_by, created_at
		FROM attachments
		WHERE id=$1 AND project_id=$2 AND suggestion_id=$3
	`, attachmentID, projectID, suggestionID).Scan(
		&item.ID, &item.ProjectID, &item.SuggestionID, &item.FileName, &item.ContentType,
		&item.Size, &item.ObjectKey, &item.UploadedBy, &item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Attachment{}, ErrNotFound
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, projectID, suggestionID, attachmentID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM attachments WHERE id=$1 AND project_id=$2 AND suggestion_id=$3
	`, attachmentID, projectID, suggestionID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attachment rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
