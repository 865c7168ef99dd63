package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced row does not exist in the
	// caller's project scope.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyPromoted is returned when a promotion targets a suggestion
	// that already carries a backlog item reference.
	ErrAlreadyPromoted = errors.New("suggestion already promoted")
	// ErrSuggestionLocked is returned when an edit or delete targets a
	// promoted suggestion.
	ErrSuggestionLocked = errors.New("suggestion locked by promotion")
	// ErrDuplicateEmail is returned when a signup reuses a registered email.
	ErrDuplicateEmail = errors.New("email already registered")
)

const (
	SuggestionOpen       = "open"
	SuggestionInProgress = "in_progress"
	SuggestionDone       = "done"
	SuggestionRejected   = "rejected"
)

const (
	OriginManual     = "manual"
	OriginSuggestion = "suggestion"
)

const (
	StageTodo    = "todo"
	StageDoing   = "doing"
	StageReview  = "review"
	StageDone    = "done"
	StageBlocked = "blocked"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	Stacks       []string
	CreatedAt    time.Time
}

type Project struct {
	ID        string
	Name      string
	Summary   string
	CreatedBy string
	CreatedAt time.Time
}

type Membership struct {
	ProjectID string
	UserID    string
	AddedBy   string
	CreatedAt time.Time
}

type Suggestion struct {
	ID              string
	ProjectID       string
	AuthorID        string
	AuthorName      string
	Title           string
	Description     string
	Status          string
	ProgressPercent int
	Score           int
	Upvotes         int
	Downvotes       int
	BacklogItemID   *string
	LockedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PromotionState is the explicit form of the promoted/unpromoted variant
// encoded by the nullable backlog item reference.
type PromotionState struct {
	Promoted      bool
	BacklogItemID string
}

func (s Suggestion) Promotion() PromotionState {
	if s.BacklogItemID == nil {
		return PromotionState{}
	}
	return PromotionState{Promoted: true, BacklogItemID: *s.BacklogItemID}
}

type Vote struct {
	ProjectID    string
	SuggestionID string
	VoterID      string
	Value        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type BacklogItem struct {
	ID              string
	ProjectID       string
	Origin          string
	SuggestionID    *string
	Title           string
	Summary         string
	Stage           string
	Priority        string
	ProgressPercent int
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Task struct {
	ID            string
	BacklogItemID string
	Stack         string
	Title         string
	Description   string
	IsDone        bool
	DoneAt        *time.Time
	OrderIndex    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TaskUpdate carries the mutable task fields; nil means leave unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Stack       *string
	IsDone      *bool
	OrderIndex  *int
}

// VoteResult is the settled tally after a cast, plus the voter's prior value
// (0 when no prior vote row existed).
type VoteResult struct {
	Score      int
	Upvotes    int
	Downvotes  int
	PriorValue int
}

// Progress reports recomputed completion percentages. Suggestion is nil for
// manual backlog items with no originating suggestion.
type Progress struct {
	Backlog    int
	Suggestion *int
}

type Attachment struct {
	ID           string
	ProjectID    string
	SuggestionID string
	FileName     string
	ContentType  string
	Size         int64
	ObjectKey    string
	UploadedBy   string
	CreatedAt    time.Time
}
