package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexSuggestion indexes a suggestion (fire-and-forget to Meilisearch).
func (s *Service) IndexSuggestion(record SuggestionRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSuggestion(record); err != nil {
			log.Printf("search: index suggestion %s: %v", record.ID, err)
		}
	}()
}

// IndexBacklogItem indexes a backlog item (fire-and-forget to Meilisearch).
func (s *Service) IndexBacklogItem(record BacklogRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexBacklogItem(record); err != nil {
			log.Printf("search: index backlog item %s: %v", record.ID, err)
		}
	}()
}

// DeleteSuggestion removes a suggestion from the search index (fire-and-forget).
func (s *Service) DeleteSuggestion(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteSuggestion(id); err != nil {
			log.Printf("search: delete suggestion %s: %v", id, err)
		}
	}()
}

// DeleteBacklogItem removes a backlog item from the search index (fire-and-forget).
func (s *Service) DeleteBacklogItem(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteBacklogItem(id); err != nil {
			log.Printf("search: delete backlog item %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	suggestions, items, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexSuggestions(suggestions); err != nil {
		log.Printf("search: reindex suggestions: %v", err)
	}
	if err := s.meili.IndexBacklogItems(items); err != nil {
		log.Printf("search: reindex backlog items: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
