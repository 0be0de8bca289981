package config

import (
	"errors"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envFile is loaded into the process environment when present. Variables
// already set take precedence over the file.
var envFile = ".env"

// EnvConfig lists the environment variables dsqlctl reads. It is filled from
// the current Config so unset variables keep their previous value.
type EnvConfig struct {
	Host            string `env:"DB_HOST"`
	Port            int    `env:"DB_PORT"`
	User            string `env:"DB_USER"`
	Database        string `env:"DB_NAME"`
	Region          string `env:"AWS_REGION"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `env:"AWS_SESSION_TOKEN"`
	BackupBucket    string `env:"DSQL_BACKUP_BUCKET"`
	BackupEndpoint  string `env:"DSQL_BACKUP_ENDPOINT"`
}

func parseEnv(config *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	e := &EnvConfig{
		Host:            config.Host,
		Port:            config.Port,
		User:            config.User,
		Database:        config.Database,
		Region:          config.Region,
		AccessKeyID:     config.AccessKeyID,
		SecretAccessKey: config.SecretAccessKey,
		SessionToken:    config.SessionToken,
		BackupBucket:    config.BackupBucket,
		BackupEndpoint:  config.BackupEndpoint,
	}
	if err := cleanenv.ReadEnv(e); err != nil {
		return err
	}

	config.Host = e.Host
	config.Port = e.Port
	config.User = e.User
	config.Database = e.Database
	config.Region = e.Region
	config.AccessKeyID = e.AccessKeyID
	config.SecretAccessKey = e.SecretAccessKey
	config.SessionToken = e.SessionToken
	config.BackupBucket = e.BackupBucket
	config.BackupEndpoint = e.BackupEndpoint
	return nil
}
