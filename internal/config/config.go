// Package config loads and validates the service's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Config is the root of the service's YAML configuration document.
type Config struct {
	MaxJobs      int               `yaml:"max_jobs"`
	RestoreJobs  int               `yaml:"restore_jobs"`
	JoblogsPath  string            `yaml:"joblogs_path"`
	IndexesPath  string            `yaml:"indexes_path"`
	Templates    Templates         `yaml:"templates"`
	SearchConfig SearchConfig      `yaml:"search_config"`
	HTTPServer   HTTPServerConfig  `yaml:"http_server"`
	HTTPClient   HTTPClientConfig  `yaml:"http_client"`
	Commands     Commands          `yaml:"commands"`
	Destinations []types.Destination `yaml:"destinations"`
}

// Templates holds the optional `createdb --template` arguments for full
// and partial restores.
type Templates struct {
	Full    string `yaml:"full"`
	Partial string `yaml:"partial"`
}

// SearchConfig configures the background scanner (C2).
type SearchConfig struct {
	Interval       uint64   `yaml:"interval"`
	RecursionLimit int      `yaml:"recursion_limit"`
	Directories    []string `yaml:"directories"`
	Extensions     []string `yaml:"extensions"`
}

// CORSMode selects the CORS policy applied to the HTTP API.
type CORSMode string

const (
	CORSAllowAny   CORSMode = "AllowAny"
	CORSWhitelist  CORSMode = "Whitelist"
)

// CORSConfig is the `http_server.cors` block.
type CORSConfig struct {
	Type      CORSMode `yaml:"type"`
	Whitelist []string `yaml:"whitelist"`
}

// HTTPServerConfig is the `http_server` block.
type HTTPServerConfig struct {
	CORS *CORSConfig `yaml:"cors"`
}

// HTTPClientConfig configures the HTTP downloader (C3).
type HTTPClientConfig struct {
	DownloadDirectory       string   `yaml:"download_directory"`
	RootCertificates        []string `yaml:"root_certificates"`
	AcceptInvalidHostnames  bool     `yaml:"accept_invalid_hostnames"`
	AcceptInvalidCerts      bool     `yaml:"accept_invalid_certs"`
}

// Commands holds the paths to the external PostgreSQL tooling binaries.
type Commands struct {
	CreatedbPath  string `yaml:"createdb_path"`
	DropdbPath    string `yaml:"dropdb_path"`
	PgrestorePath string `yaml:"pgrestore_path"`
}

// Load reads and parses the YAML configuration at path. It does not
// validate the result; call Validate separately so callers can choose
// when startup should fail.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	if cfg.SearchConfig.RecursionLimit == 0 {
		cfg.SearchConfig.RecursionLimit = defaultRecursionLimit
	}

	return &cfg, nil
}

const defaultRecursionLimit = 5
