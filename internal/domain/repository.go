package domain

import "time"

// Repository summarizes one public source repository.
type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	StarCount   int       `json:"stargazers_count"`
	ForkCount   int       `json:"forks_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}
