package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dsqlctl/internal/flagx"
	"github.com/dmitrijs2005/dsqlctl/internal/timex"
)

// JsonConfig is the DTO read from the -c/-config file. Durations accept both
// strings such as "500ms" and integer nanoseconds. Pointer and zero-valued
// fields that are absent leave the current setting alone.
type JsonConfig struct {
	Host              string          `json:"host"`
	Port              int             `json:"port"`
	User              string          `json:"user"`
	Database          string          `json:"database"`
	Region            string          `json:"region"`
	Admin             *bool           `json:"admin"`
	MaxConns          int             `json:"max_conns"`
	RetryMaxAttempts  int             `json:"retry_max_attempts"`
	RetryBackoff      *timex.Duration `json:"retry_backoff"`
	TokenExpiry       *timex.Duration `json:"token_expiry"`
	TokenRefresh      *bool           `json:"token_refresh"`
	BackupBucket      string          `json:"backup_bucket"`
	BackupEndpoint    string          `json:"backup_endpoint"`
	StressUsers       int             `json:"stress_users"`
	StressConcurrency int             `json:"stress_concurrency"`
}

// parseJson overlays values from the file named by -c or -config. Nothing
// happens when neither flag is given.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.Host, c.Host)
	setInt(&config.Port, c.Port)
	setString(&config.User, c.User)
	setString(&config.Database, c.Database)
	setString(&config.Region, c.Region)
	if c.Admin != nil {
		config.Admin = *c.Admin
		config.adminSet = true
	}
	setInt(&config.MaxConns, c.MaxConns)
	setInt(&config.RetryMaxAttempts, c.RetryMaxAttempts)
	if c.RetryBackoff != nil {
		config.RetryBackoff = c.RetryBackoff.Duration
	}
	if c.TokenExpiry != nil {
		config.TokenExpiry = c.TokenExpiry.Duration
	}
	if c.TokenRefresh != nil {
		config.TokenRefresh = *c.TokenRefresh
	}
	setString(&config.BackupBucket, c.BackupBucket)
	setString(&config.BackupEndpoint, c.BackupEndpoint)
	setInt(&config.StressUsers, c.StressUsers)
	setInt(&config.StressConcurrency, c.StressConcurrency)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
