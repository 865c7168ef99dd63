package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxSuggestions = "huddle_suggestions"
	idxBacklog     = "huddle_backlog_items"
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes.
// Returns a client even if the initial connection fails; the health loop
// will reconfigure when Meilisearch comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxSuggestions,
			primaryKey: "id",
			filterable: []string{"projectId", "status"},
			searchable: []string{"title", "description"},
		},
		{
			uid:        idxBacklog,
			primaryKey: "id",
			filterable: []string{"projectId", "stage", "priority"},
			searchable: []string{"title", "summary"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxSuggestions, ResultSuggestion},
		{idxBacklog, ResultBacklog},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}

		if q.FilterProjectID != "" {
			sr.Filter = []string{fmt.Sprintf("projectId = %q", q.FilterProjectID)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxSuggestions:
		return ResultSuggestion
	case idxBacklog:
		return ResultBacklog
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.ProjectID = decodeString(hit, "projectId")

	switch rtyp {
	case ResultSuggestion:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
		r.Status = decodeString(hit, "status")
	case ResultBacklog:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "summary"), decodeString(hit, "summary"))
		r.Status = decodeString(hit, "stage")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexSuggestion adds or updates a suggestion in the search index.
func (m *Meili) IndexSuggestion(s SuggestionRecord) error {
	_, err := m.client.Index(idxSuggestions).AddDocuments([]SuggestionRecord{s}, nil)
	return err
}

// IndexBacklogItem adds or updates a backlog item in the search index.
func (m *Meili) IndexBacklogItem(b BacklogRecord) error {
	_, err := m.client.Index(idxBacklog).AddDocuments([]BacklogRecord{b}, nil)
	return err
}

// DeleteSuggestion removes a suggestion from the search index.
func (m *Meili) DeleteSuggestion(id string) error {
	_, err := m.client.Index(idxSuggestions).DeleteDocument(id, nil)
	return err
}

// DeleteBacklogItem removes a backlog item from the search index.
func (m *Meili) DeleteBacklogItem(id string) error {
	_, err := m.client.Index(idxBacklog).DeleteDocument(id, nil)
	return err
}

// IndexSuggestions bulk-indexes suggestions.
func (m *Meili) IndexSuggestions(suggestions []SuggestionRecord) error {
	if len(suggestions) == 0 {
		return nil
	}
	_, err := m.client.Index(idxSuggestions).AddDocuments(suggestions, nil)
	return err
}

// IndexBacklogItems bulk-indexes backlog items.
func (m *Meili) IndexBacklogItems(items []BacklogRecord) error {
	if len(items) == 0 {
		return nil
	}
	_, err := m.client.Index(idxBacklog).AddDocuments(items, nil)
	return err
}
