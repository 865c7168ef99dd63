package app

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"huddle/api/internal/rbac"
	"huddle/api/internal/search"
	"huddle/api/internal/store"
	"huddle/api/internal/util"
)

// Suggestion CRUD, voting, promotion, backlog and task mutation. The store
// enforces the transactional invariants (exactly-once promotion, tally and
// progress recomputation); this layer enforces role, membership, stack and
// ownership rules before any transaction opens.

func (s *Service) CreateSuggestion(ctx context.Context, session Session, projectID, title, description string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionSuggest) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	suggestion, err := s.store.InsertSuggestion(ctx, store.Suggestion{
		ID:          util.NewID("sug"),
		ProjectID:   projectID,
		AuthorID:    session.UserID,
		Title:       title,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, err
	}

	s.indexSuggestion(suggestion)
	return suggestionPayload(suggestion), nil
}

func (s *Service) ListSuggestions(ctx context.Context, session Session, projectID string) ([]map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	suggestions, err := s.store.ListSuggestions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(suggestions))
	for _, suggestion := range suggestions {
		items = append(items, suggestionPayload(suggestion))
	}
	return items, nil
}

func (s *Service) GetSuggestion(ctx context.Context, session Session, projectID, suggestionID string) (map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	suggestion, err := s.store.GetSuggestion(ctx, projectID, suggestionID)
	if err != nil {
		return nil, err
	}
	return suggestionPayload(suggestion), nil
}

// UpdateSuggestion edits title/description. Author only, and only while
// unpromoted; admins do not bypass the author rule.
func (s *Service) UpdateSuggestion(ctx context.Context, session Session, projectID, suggestionID, title, description string) (map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	existing, err := s.store.GetSuggestion(ctx, projectID, suggestionID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != session.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only the author can edit a suggestion", nil)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	updated, err := s.store.UpdateSuggestion(ctx, projectID, suggestionID, title, strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}

	s.indexSuggestion(updated)
	return suggestionPayload(updated), nil
}

func (s *Service) DeleteSuggestion(ctx context.Context, session Session, projectID, suggestionID string) error {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return err
	}
	existing, err := s.store.GetSuggestion(ctx, projectID, suggestionID)
	if err != nil {
		return err
	}
	if existing.AuthorID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the author can delete a suggestion", nil)
	}
	if err := s.store.DeleteSuggestion(ctx, projectID, suggestionID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteSuggestion(suggestionID)
	}
	return nil
}

// CastVote records or replaces the caller's vote and returns the settled
// tally. A value of 0 retracts the vote without deleting the row.
func (s *Service) CastVote(ctx context.Context, session Session, projectID, suggestionID string, value int) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionVote) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	if value < -1 || value > 1 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "value must be -1, 0, or 1", nil)
	}

	result, err := s.store.CastVote(ctx, projectID, suggestionID, session.UserID, value)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"score":     result.Score,
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
		"priorVote": result.PriorValue,
	}, nil
}

// Promote converts a suggestion into a backlog item, exactly once.
func (s *Service) Promote(ctx context.Context, session Session, projectID, suggestionID string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionPromote) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}

	item, err := s.store.PromoteSuggestion(ctx, projectID, suggestionID, session.UserID)
	if err != nil {
		return nil, err
	}

	s.indexBacklogItem(item)
	if suggestion, err := s.store.GetSuggestion(ctx, projectID, suggestionID); err == nil {
		s.indexSuggestion(suggestion)
	}
	return backlogPayload(item), nil
}

func (s *Service) CreateBacklogItem(ctx context.Context, session Session, projectID, title, summary, priority string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionManageTasks) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if priority == "" {
		priority = store.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown priority: "+priority, nil)
	}

	item, err := s.store.InsertBacklogItem(ctx, store.BacklogItem{
		ID:        util.NewID("bli"),
		ProjectID: projectID,
		Origin:    store.OriginManual,
		Title:     title,
		Summary:   strings.TrimSpace(summary),
		Stage:     store.StageTodo,
		Priority:  priority,
		CreatedBy: session.UserID,
	})
	if err != nil {
		return nil, err
	}

	s.indexBacklogItem(item)
	return backlogPayload(item), nil
}

func (s *Service) ListBacklogItems(ctx context.Context, session Session, projectID string) ([]map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	items, err := s.store.ListBacklogItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, backlogPayload(item))
	}
	return payloads, nil
}

func (s *Service) GetBacklogItem(ctx context.Context, session Session, projectID, backlogItemID string) (map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	item, err := s.store.GetBacklogItem(ctx, projectID, backlogItemID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	payload := backlogPayload(item)
	taskPayloads := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		taskPayloads = append(taskPayloads, taskPayload(task))
	}
	payload["tasks"] = taskPayloads
	return payload, nil
}

// UpdateBacklogItemMeta changes title/summary/stage/priority. Progress is
// never client-supplied.
func (s *Service) UpdateBacklogItemMeta(ctx context.Context, session Session, projectID, backlogItemID, title, summary, stage, priority string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionManageTasks) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}

	existing, err := s.store.GetBacklogItem(ctx, projectID, backlogItemID)
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		title = existing.Title
	}
	if summary = strings.TrimSpace(summary); summary == "" {
		summary = existing.Summary
	}
	if stage == "" {
		stage = existing.Stage
	}
	if priority == "" {
		priority = existing.Priority
	}
	if !validStage(stage) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stage: "+stage, nil)
	}
	if !validPriority(priority) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown priority: "+priority, nil)
	}

	item, err := s.store.UpdateBacklogItemMeta(ctx, projectID, backlogItemID, title, summary, stage, priority)
	if err != nil {
		return nil, err
	}

	s.indexBacklogItem(item)
	return backlogPayload(item), nil
}

func (s *Service) Recompute(ctx context.Context, session Session, projectID, backlogItemID string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionManageTasks) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	progress, err := s.store.RecomputeProgress(ctx, projectID, backlogItemID)
	if err != nil {
		return nil, err
	}
	return progressPayload(progress), nil
}

type TaskInput struct {
	Stack       string `json:"stack"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsDone      bool   `json:"isDone"`
	OrderIndex  int    `json:"orderIndex"`
}

// CreateTask adds a task behind the stack guard and returns it with
// recomputed progress.
func (s *Service) CreateTask(ctx context.Context, session Session, projectID, backlogItemID string, input TaskInput) (map[string]any, error) {
	if err := s.requireTaskRole(ctx, session, projectID); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if !rbac.ValidStack(input.Stack) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stack: "+input.Stack, nil)
	}
	if err := s.requireStack(ctx, session, input.Stack); err != nil {
		return nil, err
	}

	task, progress, err := s.store.CreateTask(ctx, projectID, store.Task{
		BacklogItemID: backlogItemID,
		Stack:         input.Stack,
		Title:         input.Title,
		Description:   strings.TrimSpace(input.Description),
		IsDone:        input.IsDone,
		OrderIndex:    input.OrderIndex,
	})
	if err != nil {
		return nil, err
	}
	return taskWithProgressPayload(task, progress), nil
}

// UpdateTask mutates a task. The caller needs the task's current stack, and
// when re-tagging, the new stack as well.
func (s *Service) UpdateTask(ctx context.Context, session Session, projectID, backlogItemID, taskID string, upd store.TaskUpdate) (map[string]any, error) {
	if err := s.requireTaskRole(ctx, session, projectID); err != nil {
		return nil, err
	}
	existing, err := s.store.GetTask(ctx, backlogItemID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireStack(ctx, session, existing.Stack); err != nil {
		return nil, err
	}
	if upd.Stack != nil && *upd.Stack != existing.Stack {
		if !rbac.ValidStack(*upd.Stack) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown stack: "+*upd.Stack, nil)
		}
		if err := s.requireStack(ctx, session, *upd.Stack); err != nil {
			return nil, err
		}
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title cannot be empty", nil)
	}

	task, progress, err := s.store.UpdateTask(ctx, projectID, backlogItemID, taskID, upd)
	if err != nil {
		return nil, err
	}
	return taskWithProgressPayload(task, progress), nil
}

func (s *Service) DeleteTask(ctx context.Context, session Session, projectID, backlogItemID, taskID string) (map[string]any, error) {
	if err := s.requireTaskRole(ctx, session, projectID); err != nil {
		return nil, err
	}
	existing, err := s.store.GetTask(ctx, backlogItemID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireStack(ctx, session, existing.Stack); err != nil {
		return nil, err
	}

	progress, err := s.store.DeleteTask(ctx, projectID, backlogItemID, taskID)
	if err != nil {
		return nil, err
	}
	return progressPayload(progress), nil
}

// UploadAttachment stores the blob in object storage and records metadata in
// Postgres. Disabled when no object store is configured.
func (s *Service) UploadAttachment(ctx context.Context, session Session, projectID, suggestionID, fileName, contentType string, size int64, body io.Reader) (map[string]any, error) {
	if s.attach == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_UNAVAILABLE", "Attachment storage not configured", nil)
	}
	if !s.Can(session.Role, rbac.ActionSuggest) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSuggestion(ctx, projectID, suggestionID); err != nil {
		return nil, err
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "fileName is required", nil)
	}

	id := util.NewID("att")
	objectKey := projectID + "/" + suggestionID + "/" + id + "/" + fileName
	if err := s.attach.Put(ctx, objectKey, body, size, contentType); err != nil {
		return nil, err
	}

	attachment, err := s.store.InsertAttachment(ctx, store.Attachment{
		ID:           id,
		ProjectID:    projectID,
		SuggestionID: suggestionID,
		FileName:     fileName,
		ContentType:  contentType,
		Size:         size,
		ObjectKey:    objectKey,
		UploadedBy:   session.UserID,
	})
	if err != nil {
		// Orphaned blob; metadata insert failed so the object is unreachable.
		_ = s.attach.Remove(ctx, objectKey)
		return nil, err
	}
	return attachmentPayload(attachment), nil
}

func (s *Service) ListAttachments(ctx context.Context, session Session, projectID, suggestionID string) ([]map[string]any, error) {
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	attachments, err := s.store.ListAttachments(ctx, projectID, suggestionID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(attachments))
	for _, attachment := range attachments {
		items = append(items, attachmentPayload(attachment))
	}
	return items, nil
}

// AttachmentDownloadURL returns a short-lived presigned URL for the blob.
func (s *Service) AttachmentDownloadURL(ctx context.Context, session Session, projectID, suggestionID, attachmentID string) (map[string]any, error) {
	if s.attach == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ATTACHMENTS_UNAVAILABLE", "Attachment storage not configured", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return nil, err
	}
	attachment, err := s.store.GetAttachment(ctx, projectID, suggestionID, attachmentID)
	if err != nil {
		return nil, err
	}
	url, err := s.attach.PresignedGet(ctx, attachment.ObjectKey, attachment.FileName, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": url, "expiresInSeconds": 900}, nil
}

// DeleteAttachment removes blob and metadata. Blocked once the suggestion is
// promoted; the attachment is part of the frozen record.
func (s *Service) DeleteAttachment(ctx context.Context, session Session, projectID, suggestionID, attachmentID string) error {
	if s.attach == nil {
		return domainError(http.StatusServiceUnavailable, "ATTACHMENTS_UNAVAILABLE", "Attachment storage not configured", nil)
	}
	if err := s.requireMember(ctx, session, projectID); err != nil {
		return err
	}
	attachment, err := s.store.GetAttachment(ctx, projectID, suggestionID, attachmentID)
	if err != nil {
		return err
	}
	if attachment.UploadedBy != session.UserID && rbac.Normalize(session.Role) != rbac.RoleAdmin {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the uploader or an admin can delete an attachment", nil)
	}
	suggestion, err := s.store.GetSuggestion(ctx, projectID, suggestionID)
	if err != nil {
		return err
	}
	if suggestion.Promotion().Promoted {
		return domainError(http.StatusConflict, "SUGGESTION_LOCKED", "Suggestion is promoted; attachments are frozen", nil)
	}

	if err := s.store.DeleteAttachment(ctx, projectID, suggestionID, attachmentID); err != nil {
		return err
	}
	_ = s.attach.Remove(ctx, attachment.ObjectKey)
	return nil
}

func (s *Service) requireTaskRole(ctx context.Context, session Session, projectID string) error {
	if !s.Can(session.Role, rbac.ActionManageTasks) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return s.requireMember(ctx, session, projectID)
}

// requireStack enforces the stack guard. Admins bypass; developers need the
// stack in their global assignment, fetched fresh so revocations apply
// immediately.
func (s *Service) requireStack(ctx context.Context, session Session, stack string) error {
	role := rbac.Normalize(session.Role)
	if role == rbac.RoleAdmin {
		return nil
	}
	stacks, err := s.store.StacksOf(ctx, session.UserID)
	if err != nil {
		return err
	}
	assigned := make([]rbac.Stack, 0, len(stacks))
	for _, assignedStack := range stacks {
		assigned = append(assigned, rbac.Stack(assignedStack))
	}
	if !rbac.CanTouchStack(role, assigned, rbac.Stack(stack)) {
		return domainError(http.StatusForbidden, "STACK_FORBIDDEN", "Not assigned to stack "+stack, nil)
	}
	return nil
}

func (s *Service) indexSuggestion(suggestion store.Suggestion) {
	if s.search == nil {
		return
	}
	s.search.IndexSuggestion(search.SuggestionRecord{
		ID:          suggestion.ID,
		Title:       suggestion.Title,
		Description: suggestion.Description,
		ProjectID:   suggestion.ProjectID,
		Status:      suggestion.Status,
	})
}

func (s *Service) indexBacklogItem(item store.BacklogItem) {
	if s.search == nil {
		return
	}
	s.search.IndexBacklogItem(search.BacklogRecord{
		ID:        item.ID,
		Title:     item.Title,
		Summary:   item.Summary,
		ProjectID: item.ProjectID,
		Stage:     item.Stage,
		Priority:  item.Priority,
	})
}

func validStage(stage string) bool {
	switch stage {
	case store.StageTodo, store.StageDoing, store.StageReview, store.StageDone, store.StageBlocked:
		return true
	default:
		return false
	}
}

func validPriority(priority string) bool {
	switch priority {
	case store.PriorityLow, store.PriorityMedium, store.PriorityHigh, store.PriorityUrgent:
		return true
	default:
		return false
	}
}

func suggestionPayload(suggestion store.Suggestion) map[string]any {
	promotion := suggestion.Promotion()
	payload := map[string]any{
		"id":              suggestion.ID,
		"projectId":       suggestion.ProjectID,
		"authorId":        suggestion.AuthorID,
		"authorName":      suggestion.AuthorName,
		"title":           suggestion.Title,
		"description":     suggestion.Description,
		"status":          suggestion.Status,
		"progressPercent": suggestion.ProgressPercent,
		"score":           suggestion.Score,
		"upvotes":         suggestion.Upvotes,
		"downvotes":       suggestion.Downvotes,
		"promoted":        promotion.Promoted,
		"createdAt":       suggestion.CreatedAt,
		"updatedAt":       suggestion.UpdatedAt,
	}
	if promotion.Promoted {
		payload["backlogItemId"] = promotion.BacklogItemID
		payload["lockedAt"] = suggestion.LockedAt
	}
	return payload
}

func backlogPayload(item store.BacklogItem) map[string]any {
	payload := map[string]any{
		"id":              item.ID,
		"projectId":       item.ProjectID,
		"origin":          item.Origin,
		"title":           item.Title,
		"summary":         item.Summary,
		"stage":           item.Stage,
		"priority":        item.Priority,
		"progressPercent": item.ProgressPercent,
		"createdBy":       item.CreatedBy,
		"createdAt":       item.CreatedAt,
		"updatedAt":       item.UpdatedAt,
	}
	if item.SuggestionID != nil {
		payload["suggestionId"] = *item.SuggestionID
	}
	return payload
}

func taskPayload(task store.Task) map[string]any {
	return map[string]any{
		"id":            task.ID,
		"backlogItemId": task.BacklogItemID,
		"stack":         task.Stack,
		"title":         task.Title,
		"description":   task.Description,
		"isDone":        task.IsDone,
		"doneAt":        task.DoneAt,
		"orderIndex":    task.OrderIndex,
		"createdAt":     task.CreatedAt,
		"updatedAt":     task.UpdatedAt,
	}
}

func attachmentPayload(attachment store.Attachment) map[string]any {
	return map[string]any{
		"id":           attachment.ID,
		"projectId":    attachment.ProjectID,
		"suggestionId": attachment.SuggestionID,
		"fileName":     attachment.FileName,
		"contentType":  attachment.ContentType,
		"size":         attachment.Size,
		"uploadedBy":   attachment.UploadedBy,
		"createdAt":    attachment.CreatedAt,
	}
}

func progressPayload(progress store.Progress) map[string]any {
	payload := map[string]any{
		"backlogProgress": progress.Backlog,
	}
	if progress.Suggestion != nil {
		payload["suggestionProgress"] = *progress.Suggestion
	}
	return payload
}

func taskWithProgressPayload(task store.Task, progress store.Progress) map[string]any {
	payload := taskPayload(task)
	payload["progress"] = progressPayload(progress)
	return payload
}
