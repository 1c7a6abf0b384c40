package github

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reposBody = `[
  {"name":"alpha","full_name":"octo/alpha","html_url":"https://github.com/octo/alpha","description":"first","language":"Go","stargazers_count":3,"forks_count":1,"updated_at":"2024-05-01T10:00:00Z","private":false},
  {"name":"secret","full_name":"octo/secret","html_url":"https://github.com/octo/secret","private":true,"updated_at":"2024-05-02T10:00:00Z"},
  {"name":"beta","full_name":"octo/beta","html_url":"https://github.com/octo/beta","description":null,"language":null,"stargazers_count":0,"forks_count":0,"updated_at":"2024-04-01T10:00:00Z"},
  {"name":"hidden","full_name":"octo/hidden","html_url":"https://github.com/octo/hidden","private":true,"updated_at":"2024-05-03T10:00:00Z"},
  {"name":"gamma","full_name":"octo/gamma","html_url":"https://github.com/octo/gamma","language":"Rust","stargazers_count":42,"forks_count":7,"updated_at":"2024-03-01T10:00:00Z"}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	return NewClient(server.URL, logger, WithTimeout(time.Second)), &logs
}

func TestListPublicRepositories(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octo/repos", r.URL.Path)
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, APIVersion, r.Header.Get("X-GitHub-Api-Version"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reposBody))
	})

	repos := client.ListPublicRepositories(context.Background(), "octo")

	require.Len(t, repos, 3)
	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "beta", repos[1].Name)
	assert.Equal(t, "gamma", repos[2].Name)

	assert.Equal(t, "octo/alpha", repos[0].FullName)
	assert.Equal(t, "https://github.com/octo/alpha", repos[0].URL)
	assert.Equal(t, "first", repos[0].Description)
	assert.Equal(t, "Go", repos[0].Language)
	assert.Equal(t, 3, repos[0].StarCount)
	assert.Equal(t, 1, repos[0].ForkCount)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), repos[0].UpdatedAt.UTC())

	assert.Empty(t, repos[1].Description)
	assert.Empty(t, repos[1].Language)

	for _, r := range repos {
		assert.NotContains(t, []string{"secret", "hidden"}, r.Name)
	}
}

func TestListPublicRepositories_Empty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	repos := client.ListPublicRepositories(context.Background(), "octo")
	assert.NotNil(t, repos)
	assert.Empty(t, repos)
}

func TestListPublicRepositories_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantLog string
	}{
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, "user not found"},
		{"forbidden", http.StatusForbidden, `{"message":"API rate limit exceeded"}`, "rate limit exceeded or forbidden"},
		{"too many requests", http.StatusTooManyRequests, `{}`, "rate limit exceeded or forbidden"},
		{"server error", http.StatusBadGateway, `oops`, "http error fetching repositories"},
		{"malformed", http.StatusOK, `{"not":"a list"}`, "malformed repository response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			repos := client.ListPublicRepositories(context.Background(), "ghost")

			assert.NotNil(t, repos)
			assert.Empty(t, repos)
			assert.Contains(t, logs.String(), tt.wantLog)
			assert.Contains(t, logs.String(), `"user":"ghost"`)
		})
	}
}

func TestListPublicRepositories_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	var logs bytes.Buffer
	client := NewClient(server.URL, zerolog.New(&logs), WithTimeout(20*time.Millisecond))

	repos := client.ListPublicRepositories(context.Background(), "slow")

	assert.NotNil(t, repos)
	assert.Empty(t, repos)
	assert.Contains(t, logs.String(), "timeout fetching repositories")
}

func TestListPublicRepositories_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	var logs bytes.Buffer
	client := NewClient(baseURL, zerolog.New(&logs), WithTimeout(time.Second))

	repos := client.ListPublicRepositories(context.Background(), "octo")

	assert.NotNil(t, repos)
	assert.Empty(t, repos)
	assert.Contains(t, logs.String(), "connection error fetching repositories")
}
