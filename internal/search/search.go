package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultSuggestion ResultType = "suggestion"
	ResultBacklog    ResultType = "backlog_item"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	ProjectID string     `json:"projectId"`
	Status    string     `json:"status,omitempty"`
}

// Query describes a search request. Callers are expected to have checked
// project membership before passing a FilterProjectID.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexSuggestion(s SuggestionRecord) error
	IndexBacklogItem(b BacklogRecord) error
	DeleteSuggestion(id string) error
	DeleteBacklogItem(id string) error
}

// SuggestionRecord is the data we index for a suggestion.
type SuggestionRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId"`
	Status      string `json:"status"`
}

// BacklogRecord is the data we index for a backlog item.
type BacklogRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	ProjectID string `json:"projectId"`
	Stage     string `json:"stage"`
	Priority  string `json:"priority"`
}
