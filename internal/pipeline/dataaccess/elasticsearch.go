package dataaccess

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/dataaccess/queries"
)

// ElasticsearchSearcher serves vendor and commodity search from an index
// mirroring the matrix table.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSearcher(client *elasticsearch.Client, index string) *ElasticsearchSearcher {
	return &ElasticsearchSearcher{client: client, index: index}
}

func (s *ElasticsearchSearcher) SearchVendors(ctx context.Context, term string, limit int) (Result, error) {
	req, err := queries.VendorSearchRequest(s.index, term, limit)
	if err != nil {
		return Result{}, err
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return Result{}, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return Result{}, fmt.Errorf("search failed: %s", res.Status())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decode search response: %w", err)
	}

	rows := make([]models.Row, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		if hit.Source != nil {
			rows = append(rows, models.Row(hit.Source))
		}
	}
	return Result{Rows: rows, Query: fmt.Sprintf("index=%s term=%q", s.index, term)}, nil
}
