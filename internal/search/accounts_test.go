package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/vidtube/internal/models"
)

type esStub struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	status   int
	reply    string
}

func (s *esStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.bodies = append(s.bodies, string(b))
	status, reply := s.status, s.reply
	s.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply))
}

func newTestDirectory(t *testing.T, stub *esStub) *Directory {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewDirectory(client, "accounts")
}

func TestDirectory_IndexAccount(t *testing.T) {
	t.Parallel()

	stub := &esStub{status: http.StatusCreated, reply: `{"result":"created"}`}
	d := newTestDirectory(t, stub)

	err := d.IndexAccount(context.Background(), models.PublicAccount{
		ID: "acc-1", Username: "ada", FullName: "Ada Lovelace", Avatar: "http://cdn/a.png",
	})
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	assert.Equal(t, "PUT /accounts/_doc/acc-1", stub.requests[0])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stub.bodies[0]), &doc))
	assert.Equal(t, "ada", doc["username"])
	assert.NotContains(t, doc, "passwordHash")
	assert.NotContains(t, doc, "refreshToken")
}

func TestDirectory_Search(t *testing.T) {
	t.Parallel()

	stub := &esStub{reply: `{"hits":{"total":{"value":2},"hits":[
		{"_source":{"id":"1","username":"ada","fullName":"Ada Lovelace"}},
		{"_source":{"id":"2","username":"adam","fullName":"Adam Smith"}}]}}`}
	d := newTestDirectory(t, stub)

	res, err := d.Search(context.Background(), "ada", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Accounts, 2)
	assert.Equal(t, "adam", res.Accounts[1].Username)

	assert.Equal(t, "POST /accounts/_search", stub.requests[0])
	assert.True(t, strings.Contains(stub.bodies[0], `"multi_match"`))
	assert.True(t, strings.Contains(stub.bodies[0], `"from":10`))
}

func TestDirectory_SearchError(t *testing.T) {
	t.Parallel()

	stub := &esStub{status: http.StatusBadRequest, reply: `{"error":"bad query"}`}
	d := newTestDirectory(t, stub)

	_, err := d.Search(context.Background(), "ada", 0, 10)
	assert.ErrorContains(t, err, "bad query")
}
