package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"huddle/api/internal/util"
)

// The operations in this file are the invariant-bearing mutations: vote
// casting, promotion, task mutation, and progress recomputation. Each runs in
// a single transaction and locks the rows it reads-then-writes, so two
// concurrent requests cannot produce an inconsistent aggregate. Lock order is
// suggestion before vote row, and backlog item before task rows.

// CastVote upserts the voter's vote and recomputes the suggestion's tally
// from the full vote set. Tallies are always derived, never incremented, so
// they cannot drift under concurrent casts or partial failures.
func (s *PostgresStore) CastVote(ctx context.Context, projectID, suggestionID, voterID string, value int) (VoteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return VoteResult{}, fmt.Errorf("begin cast vote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM suggestions WHERE id=$1 AND project_id=$2 FOR UPDATE
	`, suggestionID, projectID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return VoteResult{}, ErrNotFound
	}
	if err != nil {
		return VoteResult{}, fmt.Errorf("lock suggestion: %w", err)
	}

	prior := 0
	err = tx.QueryRowContext(ctx, `
		SELECT value FROM votes
		WHERE project_id=$1 AND suggestion_id=$2 AND voter_id=$3
		FOR UPDATE
	`, projectID, suggestionID, voterID).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return VoteResult{}, fmt.Errorf("lock prior vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO votes (project_id, suggestion_id, voter_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, suggestion_id, voter_id)
		DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, projectID, suggestionID, voterID, value); err != nil {
		return VoteResult{}, fmt.Errorf("upsert vote: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT value FROM votes WHERE project_id=$1 AND suggestion_id=$2
	`, projectID, suggestionID)
	if err != nil {
		return VoteResult{}, fmt.Errorf("scan vote set: %w", err)
	}
	var values []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return VoteResult{}, fmt.Errorf("scan vote: %w", err)
		}
		values = append(values, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return VoteResult{}, fmt.Errorf("iterate votes: %w", err)
	}

	score, upvotes, downvotes := tallyVotes(values)
	if _, err := tx.ExecContext(ctx, `
		UPDATE suggestions
		SET score=$2, upvotes_count=$3, downvotes_count=$4, updated_at=NOW()
		WHERE id=$1
	`, suggestionID, score, upvotes, downvotes); err != nil {
		return VoteResult{}, fmt.Errorf("write tally: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return VoteResult{}, fmt.Errorf("commit cast vote: %w", err)
	}
	return VoteResult{Score: score, Upvotes: upvotes, Downvotes: downvotes, PriorValue: prior}, nil
}

// tallyVotes folds a vote set into (score, upvotes, downvotes). Zero values
// are retracted votes and count toward neither side.
func tallyVotes(values []int) (score, upvotes, downvotes int) {
	for _, v := range values {
		switch {
		case v > 0:
			upvotes++
		case v < 0:
			downvotes++
		}
	}
	return upvotes - downvotes, upvotes, downvotes
}

// PromoteSuggestion converts a suggestion into a backlog item exactly once.
// The suggestion row is locked before the promoted-state check, so the
// check-then-act sequence is atomic with respect to concurrent promoters; the
// partial unique index on backlog_items(project_id, suggestion_id) backstops
// it at the constraint level.
func (s *PostgresStore) PromoteSuggestion(ctx context.Context, projectID, suggestionID, actorID string) (BacklogItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BacklogItem{}, fmt.Errorf("begin promote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var title, description string
	var backlogItemID *string
	err = tx.QueryRowContext(ctx, `
		SELECT title, description, backlog_item_id
		FROM suggestions
		WHERE id=$1 AND project_id=$2
		FOR UPDATE
	`, suggestionID, projectID).Scan(&title, &description, &backlogItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return BacklogItem{}, ErrNotFound
	}
	if err != nil {
		return BacklogItem{}, fmt.Errorf("lock suggestion: %w", err)
	}
	if backlogItemID != nil {
		return BacklogItem{}, ErrAlreadyPromoted
	}

	item := BacklogItem{
		ID:           util.NewID("bli"),
		ProjectID:    projectID,
		Origin:       OriginSuggestion,
		SuggestionID: &suggestionID,
		Title:        title,
		Summary:      description,
		Stage:        StageTodo,
		Priority:     PriorityMedium,
		CreatedBy:    actorID,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO backlog_items (id, project_id, origin, suggestion_id, title, summary, stage, priority, progress_percent, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		RETURNING created_at, updated_at
	`, item.ID, item.ProjectID, item.Origin, suggestionID, item.Title, item.Summary, item.Stage, item.Priority, actorID).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if isUniqueViolation(err) {
		return BacklogItem{}, ErrAlreadyPromoted
	}
	if err != nil {
		return BacklogItem{}, fmt.Errorf("insert backlog item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE suggestions
		SET status=$2, locked_at=NOW(), backlog_item_id=$3, updated_at=NOW()
		WHERE id=$1
	`, suggestionID, SuggestionInProgress, item.ID); err != nil {
		return BacklogItem{}, fmt.Errorf("freeze suggestion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return BacklogItem{}, fmt.Errorf("commit promote: %w", err)
	}
	return item, nil
}

// RecomputeProgress refreshes the backlog item's completion percentage from
// its task set and mirrors it onto a linked suggestion in the same
// transaction.
func (s *PostgresStore) RecomputeProgress(ctx context.Context, projectID, backlogItemID string) (Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Progress{}, fmt.Errorf("begin recompute: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	suggestionID, err := lockBacklogItem(ctx, tx, projectID, backlogItemID)
	if err != nil {
		return Progress{}, err
	}
	progress, err := recomputeLocked(ctx, tx, backlogItemID, suggestionID)
	if err != nil {
		return Progress{}, err
	}
	if err := tx.Commit(); err != nil {
		return Progress{}, fmt.Errorf("commit recompute: %w", err)
	}
	return progress, nil
}

// CreateTask inserts a task and recomputes progress in one transaction.
// OrderIndex <= 0 appends the task after the current last one.
func (s *PostgresStore) CreateTask(ctx context.Context, projectID string, task Task) (Task, Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, Progress{}, fmt.Errorf("begin create task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	suggestionID, err := lockBacklogItem(ctx, tx, projectID, task.BacklogItemID)
	if err != nil {
		return Task{}, Progress{}, err
	}

	if task.OrderIndex <= 0 {
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(order_index)+1, 0) FROM tasks WHERE backlog_item_id=$1
		`, task.BacklogItemID).Scan(&task.OrderIndex); err != nil {
			return Task{}, Progress{}, fmt.Errorf("next order index: %w", err)
		}
	}

	task.ID = util.NewID("tsk")
	var doneAt *time.Time
	if task.IsDone {
		now := time.Now().UTC()
		doneAt = &now
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tasks (id, backlog_item_id, stack, title, description, is_done, done_at, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING done_at, created_at, updated_at
	`, task.ID, task.BacklogItemID, task.Stack, task.Title, task.Description, task.IsDone, doneAt, task.OrderIndex).
		Scan(&task.DoneAt, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return Task{}, Progress{}, fmt.Errorf("insert task: %w", err)
	}

	progress, err := recomputeLocked(ctx, tx, task.BacklogItemID, suggestionID)
	if err != nil {
		return Task{}, Progress{}, err
	}
	if err := tx.Commit(); err != nil {
		return Task{}, Progress{}, fmt.Errorf("commit create task: %w", err)
	}
	return task, progress, nil
}

// UpdateTask applies the provided fields, maintains the done_at transition
// (set on false→true, cleared on →false), and recomputes progress.
func (s *PostgresStore) UpdateTask(ctx context.Context, projectID, backlogItemID, taskID string, upd TaskUpdate) (Task, Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, Progress{}, fmt.Errorf("begin update task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	suggestionID, err := lockBacklogItem(ctx, tx, projectID, backlogItemID)
	if err != nil {
		return Task{}, Progress{}, err
	}

	var task Task
	err = tx.QueryRowContext(ctx, `
		SELECT id, backlog_item_id, stack, title, description, is_done, done_at, order_index, created_at, updated_at
		FROM tasks
		WHERE id=$1 AND backlog_item_id=$2
		FOR UPDATE
	`, taskID, backlogItemID).Scan(
		&task.ID, &task.BacklogItemID, &task.Stack, &task.Title, &task.Description,
		&task.IsDone, &task.DoneAt, &task.OrderIndex, &task.CreatedAt, &task.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, Progress{}, ErrNotFound
	}
	if err != nil {
		return Task{}, Progress{}, fmt.Errorf("lock task: %w", err)
	}

	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Stack != nil {
		task.Stack = *upd.Stack
	}
	if upd.OrderIndex != nil {
		task.OrderIndex = *upd.OrderIndex
	}
	if upd.IsDone != nil && *upd.IsDone != task.IsDone {
		task.IsDone = *upd.IsDone
		if task.IsDone {
			now := time.Now().UTC()
			task.DoneAt = &now
		} else {
			task.DoneAt = nil
		}
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE tasks
		SET stack=$3, title=$4, description=$5, is_done=$6, done_at=$7, order_index=$8, updated_at=NOW()
		WHERE id=$1 AND backlog_item_id=$2
		RETURNING updated_at
	`, task.ID, backlogItemID, task.Stack, task.Title, task.Description, task.IsDone, task.DoneAt, task.OrderIndex).
		Scan(&task.UpdatedAt)
	if err != nil {
		return Task{}, Progress{}, fmt.Errorf("update task: %w", err)
	}

	progress, err := recomputeLocked(ctx, tx, backlogItemID, suggestionID)
	if err != nil {
		return Task{}, Progress{}, err
	}
	if err := tx.Commit(); err != nil {
		return Task{}, Progress{}, fmt.Errorf("commit update task: %w", err)
	}
	return task, progress, nil
}

// DeleteTask removes a task and recomputes progress in one transaction.
func (s *PostgresStore) DeleteTask(ctx context.Context, projectID, backlogItemID, taskID string) (Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Progress{}, fmt.Errorf("begin delete task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	suggestionID, err := lockBacklogItem(ctx, tx, projectID, backlogItemID)
	if err != nil {
		return Progress{}, err
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM tasks WHERE id=$1 AND backlog_item_id=$2
	`, taskID, backlogItemID)
	if err != nil {
		return Progress{}, fmt.Errorf("delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Progress{}, fmt.Errorf("delete task rows: %w", err)
	}
	if affected == 0 {
		return Progress{}, ErrNotFound
	}

	progress, err := recomputeLocked(ctx, tx, backlogItemID, suggestionID)
	if err != nil {
		return Progress{}, err
	}
	if err := tx.Commit(); err != nil {
		return Progress{}, fmt.Errorf("commit delete task: %w", err)
	}
	return progress, nil
}

// UpdateSuggestion edits title/description. Promoted suggestions are
// immutable; the lock makes the promoted-state check race-safe against a
// concurrent promotion.
func (s *PostgresStore) UpdateSuggestion(ctx context.Context, projectID, suggestionID, title, description string) (Suggestion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Suggestion{}, fmt.Errorf("begin update suggestion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var backlogItemID *string
	err = tx.QueryRowContext(ctx, `
		SELECT backlog_item_id FROM suggestions WHERE id=$1 AND project_id=$2 FOR UPDATE
	`, suggestionID, projectID).Scan(&backlogItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("lock suggestion: %w", err)
	}
	if backlogItemID != nil {
		return Suggestion{}, ErrSuggestionLocked
	}

	var item Suggestion
	err = tx.QueryRowContext(ctx, `
		UPDATE suggestions
		SET title=$2, description=$3, updated_at=NOW()
		WHERE id=$1
		RETURNING id, project_id, author_id, title, description, status, progress_percent,
			score, upvotes_count, downvotes_count, backlog_item_id, locked_at, created_at, updated_at
	`, suggestionID, title, description).Scan(
		&item.ID, &item.ProjectID, &item.AuthorID, &item.Title, &item.Description,
		&item.Status, &item.ProgressPercent, &item.Score, &item.Upvotes, &item.Downvotes,
		&item.BacklogItemID, &item.LockedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return Suggestion{}, fmt.Errorf("update suggestion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Suggestion{}, fmt.Errorf("commit update suggestion: %w", err)
	}
	return item, nil
}

// DeleteSuggestion removes an unpromoted suggestion; its vote rows cascade.
func (s *PostgresStore) DeleteSuggestion(ctx context.Context, projectID, suggestionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete suggestion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var backlogItemID *string
	err = tx.QueryRowContext(ctx, `
		SELECT backlog_item_id FROM suggestions WHERE id=$1 AND project_id=$2 FOR UPDATE
	`, suggestionID, projectID).Scan(&backlogItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock suggestion: %w", err)
	}
	if backlogItemID != nil {
		return ErrSuggestionLocked
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM suggestions WHERE id=$1`, suggestionID); err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete suggestion: %w", err)
	}
	return nil
}

// lockBacklogItem locks the backlog item row and returns its suggestion
// back-reference (nil for manual items).
func lockBacklogItem(ctx context.Context, tx *sql.Tx, projectID, backlogItemID string) (*string, error) {
	var suggestionID *string
	err := tx.QueryRowContext(ctx, `
		SELECT suggestion_id FROM backlog_items WHERE id=$1 AND project_id=$2 FOR UPDATE
	`, backlogItemID, projectID).Scan(&suggestionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock backlog item: %w", err)
	}
	return suggestionID, nil
}

// recomputeLocked derives the completion percentage from the task set and
// writes it onto the backlog item and, when linked, its suggestion. Callers
// must hold the backlog item row lock.
func recomputeLocked(ctx context.Context, tx *sql.Tx, backlogItemID string, suggestionID *string) (Progress, error) {
	var total, done int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_done)
		FROM tasks WHERE backlog_item_id=$1
	`, backlogItemID).Scan(&total, &done)
	if err != nil {
		return Progress{}, fmt.Errorf("count tasks: %w", err)
	}

	percent := progressPercent(done, total)
	if _, err := tx.ExecContext(ctx, `
		UPDATE backlog_items SET progress_percent=$2, updated_at=NOW() WHERE id=$1
	`, backlogItemID, percent); err != nil {
		return Progress{}, fmt.Errorf("write backlog progress: %w", err)
	}

	progress := Progress{Backlog: percent}
	if suggestionID != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE suggestions SET progress_percent=$2, updated_at=NOW() WHERE id=$1
		`, *suggestionID, percent); err != nil {
			return Progress{}, fmt.Errorf("mirror suggestion progress: %w", err)
		}
		progress.Suggestion = &percent
	}
	return progress, nil
}

// progressPercent is round-half-up of 100*done/total; an empty task list is
// 0% complete.
func progressPercent(done, total int) int {
	if total == 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
