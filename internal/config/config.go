// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "repo-dashboard/internal/errors"
	"repo-dashboard/internal/model"
)

// Snapshot storage backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL      string        `mapstructure:"GITHUB_API_URL"`
	ReposToSync       []string      `mapstructure:"REPOS_TO_SYNC"`
	ReposFile         string        `mapstructure:"REPOS_FILE"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL"`
	WorkflowName      string        `mapstructure:"WORKFLOW_NAME"`
	WorkflowBranch    string        `mapstructure:"WORKFLOW_BRANCH"`
	ManifestPath      string        `mapstructure:"MANIFEST_PATH"`
	TrackedPackages   []string      `mapstructure:"TRACKED_PACKAGES"`
	SnapshotBackend   string        `mapstructure:"SNAPSHOT_BACKEND"`
	DataDir           string        `mapstructure:"DATA_DIR"`
	S3Bucket          string        `mapstructure:"S3_BUCKET"`
	S3Prefix          string        `mapstructure:"S3_PREFIX"`
	S3Region          string        `mapstructure:"S3_REGION"`
	S3Endpoint        string        `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID     string        `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `mapstructure:"S3_SECRET_ACCESS_KEY"`
	CacheTTL          time.Duration `mapstructure:"CACHE_TTL"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`

	// Resolved from ReposToSync/TrackedPackages and the optional catalog file.
	Repositories []model.RepoIdentifier `mapstructure:"-"`
	Tracked      []model.TrackedPackage `mapstructure:"-"`
}

var defaults = map[string]any{
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"GITHUB_TOKEN":         "",
	"GITHUB_API_URL":       "",
	"REPOS_TO_SYNC":        "",
	"REPOS_FILE":           "",
	"SYNC_INTERVAL":        "1h",
	"WORKFLOW_NAME":        "CI/CD",
	"WORKFLOW_BRANCH":      "master",
	"MANIFEST_PATH":        "package.json",
	"TRACKED_PACKAGES":     "@rsbuild/core,jest,prettier,typescript,react,cozy-client,cozy-ui",
	"SNAPSHOT_BACKEND":     BackendFile,
	"DATA_DIR":             "data/cache",
	"S3_BUCKET":            "",
	"S3_PREFIX":            "",
	"S3_REGION":            "us-east-1",
	"S3_ENDPOINT":          "",
	"S3_ACCESS_KEY_ID":     "",
	"S3_SECRET_ACCESS_KEY": "",
	"CACHE_TTL":            "1h",
	"HTTP_ADDR":            ":8080",
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Every key gets a default so AutomaticEnv values are picked up by Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	repos, err := ParseRepoIdentifiers(cfg.ReposToSync)
	if err != nil {
		return nil, err
	}
	tracked, err := ParseTrackedPackages(cfg.TrackedPackages)
	if err != nil {
		return nil, err
	}

	if cfg.ReposFile != "" {
		catalog, err := ReadCatalogFile(cfg.ReposFile)
		if err != nil {
			return nil, err
		}
		repos = append(repos, catalog.Repositories...)
		tracked = append(tracked, catalog.TrackedPackages...)
	}
	cfg.Repositories = dedupeRepos(repos)
	cfg.Tracked = dedupeTracked(tracked)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that have no usable default.
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return errors.New("REPOS_TO_SYNC or REPOS_FILE must provide at least one repository")
	}
	if c.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if c.WorkflowName == "" || c.WorkflowBranch == "" {
		return errors.New("WORKFLOW_NAME and WORKFLOW_BRANCH must not be empty")
	}
	if c.ManifestPath == "" {
		return errors.New("MANIFEST_PATH must not be empty")
	}
	switch c.SnapshotBackend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("DATA_DIR is required for the file snapshot backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 snapshot backend")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q, expected %q or %q", c.SnapshotBackend, BackendFile, BackendS3)
	}
	return nil
}

// ParseRepoIdentifiers converts 'owner/name' strings into repository identifiers.
func ParseRepoIdentifiers(repos []string) ([]model.RepoIdentifier, error) {
	var identifiers []model.RepoIdentifier
	for _, r := range repos {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &custom_errors.ErrInvalidRepoFormat{Repo: r}
		}
		identifiers = append(identifiers, model.RepoIdentifier{Owner: parts[0], Name: parts[1]})
	}
	return identifiers, nil
}

// ParseTrackedPackages parses 'name' or 'name@target' entries.
// Scoped names such as '@rsbuild/core@1.0.0' split on the last '@'.
func ParseTrackedPackages(entries []string) ([]model.TrackedPackage, error) {
	var tracked []model.TrackedPackage
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		name, target := e, ""
		if i := strings.LastIndex(e, "@"); i > 0 {
			name, target = e[:i], e[i+1:]
			if target == "" {
				return nil, &custom_errors.ErrInvalidTrackedPackage{Entry: e}
			}
		}
		if name == "" || name == "@" {
			return nil, &custom_errors.ErrInvalidTrackedPackage{Entry: e}
		}
		tracked = append(tracked, model.TrackedPackage{Name: name, Target: target})
	}
	return tracked, nil
}

// dedupeTracked keeps the first position of each package name and the last
// entry given for it, so a catalog target overrides the same name in the list.
func dedupeTracked(tracked []model.TrackedPackage) []model.TrackedPackage {
	index := make(map[string]int, len(tracked))
	out := make([]model.TrackedPackage, 0, len(tracked))
	for _, p := range tracked {
		if i, ok := index[p.Name]; ok {
			out[i] = p
			continue
		}
		index[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}

func dedupeRepos(repos []model.RepoIdentifier) []model.RepoIdentifier {
	seen := make(map[string]bool, len(repos))
	out := make([]model.RepoIdentifier, 0, len(repos))
	for _, r := range repos {
		key := strings.ToLower(r.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
