package queries

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrMissingIndex = errors.New("index name is required")

// VendorSearchRequest builds the Elasticsearch equivalent of VendorSearch.
func VendorSearchRequest(index, term string, size int) (*esapi.SearchRequest, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}

	var query map[string]interface{}
	if strings.TrimSpace(term) == "" {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"vendor_name", "commodity_description"},
			},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":   query,
		"_source": SearchColumns,
		"sort": []interface{}{
			map[string]interface{}{"estimated_savings_opportunity": map[string]string{"order": "desc"}},
			map[string]interface{}{"vendor_name.keyword": map[string]string{"order": "asc"}},
		},
	})
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}, nil
}
