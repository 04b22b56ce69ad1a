package config

import (
	"fmt"
)

// Repository represents a GitHub repository
type Repository struct {
	Owner string
	Repo  string
}

// AppConfig represents the build-time identity of the application
type AppConfig struct {
	Name       string
	Repository Repository
	Version    Version
}

// Version represents the version information for the application
type Version struct {
	Version string
	Commit  string
	Date    string
}

// VersionText returns the version information as a string
func (v *Version) VersionText() string {
	return fmt.Sprintf("v%s : %s (%s)", v.Version, v.Commit, v.Date)
}

// Option is a function that configures an AppConfig
type Option func(*AppConfig)

// WithVersion sets the build version
func WithVersion(v Version) Option {
	return func(c *AppConfig) {
		c.Version = v
	}
}

// NewDefaultConfig returns the AppConfig for Audicord
func NewDefaultConfig(opts ...Option) *AppConfig {
	c := &AppConfig{
		Name: "Audicord",
		Repository: Repository{
			Owner: "shaharia-lab",
			Repo:  "audicord",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
