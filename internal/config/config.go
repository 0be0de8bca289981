// Package config handles configuration for dsqlctl, including defaults,
// environment (.env and process), JSON overlay, and command-line flags.
package config

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/dsqlctl/internal/auth"
	"github.com/dmitrijs2005/dsqlctl/internal/common"
)

const DefaultRegion = "us-east-1"

// Config holds runtime settings for dsqlctl.
//
// Fields:
//   - Host / Port / User / Database: cluster endpoint and identity.
//   - Region: signing region; derived from a DSQL host name when empty.
//   - Admin: request an admin token; defaults to User == "admin".
//   - AccessKeyID / SecretAccessKey / SessionToken: optional explicit
//     credentials; ambient identity is used when empty.
//   - MaxConns: pool size.
//   - RetryMaxAttempts / RetryBackoff: retry policy for store operations.
//   - TokenExpiry: lifetime requested for generated tokens.
//   - TokenRefresh: mint a fresh token for every new pooled connection.
//   - BackupBucket / BackupEndpoint: S3 target for pre-repopulate snapshots.
//   - StressUsers / StressConcurrency: stress-test workload.
//   - Verbose, Yes, DryRun, TokenOnly: CLI behavior.
type Config struct {
	Host              string
	Port              int
	User              string
	Database          string
	Region            string
	Admin             bool
	AccessKeyID       string
	SecretAccessKey   string
	SessionToken      string
	MaxConns          int
	RetryMaxAttempts  int
	RetryBackoff      time.Duration
	TokenExpiry       time.Duration
	TokenRefresh      bool
	BackupBucket      string
	BackupEndpoint    string
	StressUsers       int
	StressConcurrency int
	Verbose           bool
	Yes               bool
	DryRun            bool
	TokenOnly         bool

	adminSet bool
}

// LoadDefaults populates Config with defaults for a DSQL cluster.
func (c *Config) LoadDefaults() {
	c.Port = common.DefaultPort
	c.User = common.AdminUser
	c.Database = common.DefaultDatabase
	c.MaxConns = 5
	c.RetryMaxAttempts = 3
	c.RetryBackoff = 500 * time.Millisecond
	c.TokenExpiry = common.TokenValidity
	c.StressUsers = 100
	c.StressConcurrency = 10
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file and finally command-line
// flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	cfg.resolve()
	return cfg, nil
}

// resolve fills the fields derived from others.
func (c *Config) resolve() {
	if !c.adminSet {
		c.Admin = strings.EqualFold(c.User, common.AdminUser)
	}
	if c.Region == "" {
		if region, ok := auth.RegionFromEndpoint(c.Host); ok {
			c.Region = region
		} else {
			c.Region = DefaultRegion
		}
	}
}

// Credentials returns the identity source the token provider should use.
func (c *Config) Credentials() auth.CredentialsSource {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return auth.StaticCredentials(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
	}
	return auth.DefaultCredentials
}
