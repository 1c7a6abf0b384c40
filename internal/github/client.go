// Package github lists public repositories through the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/observability"
	"tokenomics-api/internal/upstream"
)

const (
	sourceName = "github"

	// APIVersion is sent as X-GitHub-Api-Version.
	APIVersion = "2022-11-28"

	DefaultTimeout = 10 * time.Second
)

// Client lists repositories. Every failure is logged and reported as an empty list.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// Option configures Client.
type Option func(*resty.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", APIVersion)
	for _, opt := range opts {
		opt(client)
	}
	return &Client{
		http:   client,
		logger: logger.With().Str("component", "github").Logger(),
	}
}

// repoPayload is the subset of the GitHub repository object we read.
type repoPayload struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	HTMLURL         string    `json:"html_url"`
	Description     *string   `json:"description"`
	Language        *string   `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	UpdatedAt       time.Time `json:"updated_at"`
	Private         bool      `json:"private"`
}

// ListPublicRepositories returns the public repositories of username in upstream order.
// The result is never nil.
func (c *Client) ListPublicRepositories(ctx context.Context, username string) []domain.Repository {
	log := c.logger.With().Str("user", username).Logger()
	log.Info().Msg("fetching public repositories")

	start := time.Now()
	repos, err := c.list(ctx, username)
	observability.RecordUpstreamCall(sourceName, "list_repos", time.Since(start).Seconds(), string(upstream.KindOf(err)))
	if err != nil {
		logFailure(log, err)
		return []domain.Repository{}
	}
	return repos
}

func (c *Client) list(ctx context.Context, username string) ([]domain.Repository, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/users/" + url.PathEscape(username) + "/repos")
	if err != nil {
		return nil, upstream.Network(sourceName, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, upstream.HTTPStatus(sourceName, resp.StatusCode(), resp.String())
	}

	var payload []repoPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, upstream.Parse(sourceName, err)
	}

	repos := make([]domain.Repository, 0, len(payload))
	for _, p := range payload {
		if p.Private {
			continue
		}
		repos = append(repos, domain.Repository{
			Name:        p.Name,
			FullName:    p.FullName,
			URL:         p.HTMLURL,
			Description: deref(p.Description),
			Language:    deref(p.Language),
			StarCount:   p.StargazersCount,
			ForkCount:   p.ForksCount,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return repos, nil
}

func logFailure(log zerolog.Logger, err error) {
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		log.Error().Err(err).Msg("unexpected error fetching repositories")
		return
	}

	event := log.Error().Err(err).Str("kind", string(ue.Kind))
	switch {
	case ue.Kind == upstream.KindNotFound:
		event.Msg("user not found")
	case ue.Kind == upstream.KindForbidden:
		event.Int("status", ue.Status).Msg("rate limit exceeded or forbidden")
	case ue.Kind == upstream.KindHTTP:
		event.Int("status", ue.Status).Msg("http error fetching repositories")
	case ue.Kind == upstream.KindNetwork && isTimeout(err):
		event.Msg("timeout fetching repositories")
	case ue.Kind == upstream.KindNetwork:
		event.Msg("connection error fetching repositories")
	default:
		event.Msg("malformed repository response")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
