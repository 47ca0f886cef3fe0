// Package search mirrors tasks into Elasticsearch and queries them.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// Mapping is the index definition for task documents.
const Mapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "owner_id":    {"type": "keyword"},
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "due_date":    {"type": "date", "format": "yyyy-MM-dd"},
      "priority":    {"type": "keyword"},
      "status":      {"type": "keyword"},
      "created_at":  {"type": "date"},
      "updated_at":  {"type": "date"}
    }
  }
}`

type TaskIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewTaskIndex(es *elasticsearch.Client, index string) *TaskIndex {
	return &TaskIndex{es: es, index: index}
}

// EnsureIndex creates the index with Mapping if it is missing.
func (x *TaskIndex) EnsureIndex(ctx context.Context) error {
	return helpers.EnsureESIndex(ctx, x.es, x.index, Mapping)
}

// Index upserts the task document.
func (x *TaskIndex) Index(ctx context.Context, t *application.TaskPayload) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: t.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index task %s: %s", t.ID, res.Status())
	}
	return nil
}

// Delete removes the document; a missing document is not an error.
func (x *TaskIndex) Delete(ctx context.Context, taskID string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: taskID}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete task %s: %s", taskID, res.Status())
	}
	return nil
}

// Search returns ids of the owner's tasks matching query.
func (x *TaskIndex) Search(ctx context.Context, ownerID, query string, status *entity.Status, limit int) ([]string, error) {
	b, err := json.Marshal(buildSearchQuery(ownerID, query, status, limit))
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search tasks: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func buildSearchQuery(ownerID, query string, status *entity.Status, limit int) map[string]any {
	filter := []any{
		map[string]any{"term": map[string]any{"owner_id": ownerID}},
	}
	if status != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"status": string(*status)}})
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"fields": []string{"title^2", "description"},
					},
				},
				"filter": filter,
			},
		},
		"size":    limit,
		"_source": false,
	}
}

var _ application.TaskSearcher = (*TaskIndex)(nil)
