// Package main lists a GitHub user's public repositories.
//
// Usage:
//
//	repos -user octocat
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"tokenomics-api/internal/config"
	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/github"
	"tokenomics-api/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	user := flag.String("user", "", "GitHub username (required)")
	githubURL := flag.String("github-url", cfg.GitHubURL, "GitHub API base URL")
	timeout := flag.Duration("timeout", cfg.UpstreamTimeout, "Request timeout")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.NewConsole(*logLevel)
	client := github.NewClient(*githubURL, logger, github.WithTimeout(*timeout))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	printRepositories(os.Stdout, client.ListPublicRepositories(ctx, *user))
}

func printRepositories(w io.Writer, repos []domain.Repository) {
	if len(repos) == 0 {
		fmt.Fprintln(w, "no public repositories found")
		return
	}

	for _, r := range repos {
		fmt.Fprintf(w, "Name: %s\n", r.Name)
		fmt.Fprintf(w, "URL: %s\n", r.URL)
		fmt.Fprintf(w, "Description: %s\n", r.Description)
		fmt.Fprintf(w, "Language: %s\n", r.Language)
		fmt.Fprintf(w, "Stars: %d\n", r.StarCount)
		fmt.Fprintf(w, "Last Updated: %s\n", r.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintln(w)
	}
}
