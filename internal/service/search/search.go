// Package search keeps the book catalog queryable in elasticsearch.
// Indexing is best-effort: the database stays the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/bookly/internal/models"
)

type Service struct {
	ES    *elasticsearch.Client
	Index string
}

func NewService(es *elasticsearch.Client, index string) *Service {
	return &Service{ES: es, Index: index}
}

func (s *Service) IndexBook(ctx context.Context, book *models.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("search: marshal book: %w", err)
	}
	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(data),
		s.ES.Index.WithDocumentID(book.UID),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: index book: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index book: %s", res.Status())
	}
	return nil
}

func (s *Service) DeleteBook(ctx context.Context, uid string) error {
	res, err := s.ES.Delete(s.Index, uid, s.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete book: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("search: delete book: %s", res.Status())
	}
	return nil
}

func (s *Service) Query(ctx context.Context, query string, from, size int) (int64, []models.Book, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "author", "publisher"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: query: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Book `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode response: %w", err)
	}

	books := make([]models.Book, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		books[i] = hit.Source
	}
	return r.Hits.Total.Value, books, nil
}
