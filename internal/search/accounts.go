// Package search keeps the public account directory in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/vidtube/internal/models"
)

// Document is what gets indexed; it never includes secrets.
type Document struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage,omitempty"`
}

func DocumentFrom(a models.PublicAccount) Document {
	return Document{
		ID:         a.ID,
		Username:   a.Username,
		FullName:   a.FullName,
		Avatar:     a.Avatar,
		CoverImage: a.CoverImage,
	}
}

type Result struct {
	Total    int64      `json:"total"`
	Accounts []Document `json:"accounts"`
}

type Directory struct {
	ES    *elasticsearch.Client
	Index string
}

func NewDirectory(es *elasticsearch.Client, index string) *Directory {
	return &Directory{ES: es, Index: index}
}

func (d *Directory) IndexAccount(ctx context.Context, a models.PublicAccount) error {
	body, err := json.Marshal(DocumentFrom(a))
	if err != nil {
		return fmt.Errorf("search: marshal: %w", err)
	}

	res, err := d.ES.Index(d.Index, bytes.NewReader(body),
		d.ES.Index.WithContext(ctx),
		d.ES.Index.WithDocumentID(a.ID),
	)
	if err != nil {
		return fmt.Errorf("search: index %s: %w", a.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("search: index %s: %s: %s", a.ID, res.Status(), msg)
	}
	return nil
}

func (d *Directory) Search(ctx context.Context, query string, from, size int) (*Result, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"username^2", "fullName"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := d.ES.Search(
		d.ES.Search.WithContext(ctx),
		d.ES.Search.WithIndex(d.Index),
		d.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("search: decode: %w", err)
	}

	out := &Result{Total: r.Hits.Total.Value, Accounts: make([]Document, len(r.Hits.Hits))}
	for i, hit := range r.Hits.Hits {
		out.Accounts[i] = hit.Source
	}
	return out, nil
}
