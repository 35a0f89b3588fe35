package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"outreach/config"
	"outreach/entity"
)

// SearchRepo is the free-text suggestion index. It is best-effort and lives
// beside the metadata DB, which stays the source of truth: search returns
// prospect IDs only and callers hydrate them from ProspectRepo.
type SearchRepo interface {
	Index(ctx context.Context, prospect *entity.Prospect) error
	Search(ctx context.Context, keyword string, limit uint32) ([]uint64, error)
	Close(ctx context.Context) error
}

type searchRepo struct {
	index  string
	client *elasticsearch.Client
}

func NewSearchRepo(_ context.Context, esCfg config.Elasticsearch) (SearchRepo, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: esCfg.Addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
	if err != nil {
		return nil, err
	}

	return &searchRepo{
		index:  esCfg.Index,
		client: client,
	}, nil
}

type prospectDoc struct {
	Name     string   `json:"name,omitempty"`
	Company  string   `json:"company,omitempty"`
	Email    string   `json:"email,omitempty"`
	City     string   `json:"city,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func (r *searchRepo) Index(ctx context.Context, prospect *entity.Prospect) error {
	doc := prospectDoc{
		Name:     prospect.GetName(),
		Company:  prospect.GetCompany(),
		Email:    prospect.GetEmail(),
		City:     prospect.GetCity(),
		Category: prospect.GetCategory(),
		Tags:     prospect.GetTags(),
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: strconv.FormatUint(prospect.GetID(), 10),
		Body:       bytes.NewReader(b),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		return fmt.Errorf("index prospect failed, status: %s", res.Status())
	}

	return nil
}

func (r *searchRepo) Search(ctx context.Context, keyword string, limit uint32) ([]uint64, error) {
	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keyword,
				"fields": []string{"name", "company", "email", "city", "category", "tags"},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		return nil, fmt.Errorf("search prospects failed, status: %s", res.Status())
	}

	var envelope struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *searchRepo) Close(_ context.Context) error {
	return nil
}
