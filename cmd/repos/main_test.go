package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tokenomics-api/internal/domain"
)

func TestPrintRepositories(t *testing.T) {
	var buf bytes.Buffer
	printRepositories(&buf, []domain.Repository{{
		Name:        "hello",
		URL:         "https://github.com/octocat/hello",
		Description: "greeter",
		Language:    "Go",
		StarCount:   7,
		UpdatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "Name: hello\n")
	assert.Contains(t, out, "URL: https://github.com/octocat/hello\n")
	assert.Contains(t, out, "Stars: 7\n")
	assert.Contains(t, out, "Last Updated: 2026-03-01T12:00:00Z\n")
}

func TestPrintRepositories_Empty(t *testing.T) {
	var buf bytes.Buffer
	printRepositories(&buf, nil)
	assert.Equal(t, "no public repositories found\n", buf.String())
}
