package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/dmitrijs2005/dsqlctl/internal/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BackupConfig points the backup at a bucket. Endpoint is optional and, when
// set, switches to path-style addressing for S3-compatible stores.
type BackupConfig struct {
	Bucket   string
	Region   string
	Endpoint string
}

// UsersSnapshot is the document written for each backup.
type UsersSnapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Count   int            `json:"count"`
	Users   []*models.User `json:"users"`
}

// BackupService writes users snapshots to S3.
type BackupService struct {
	config BackupConfig
	now    func() time.Time
}

func NewBackupService(cfg BackupConfig) *BackupService {
	return &BackupService{config: cfg, now: time.Now}
}

// SnapshotKey returns the object key for a snapshot taken at t.
func SnapshotKey(t time.Time) string {
	return fmt.Sprintf("backups/users/%04d/%02d/%02d/%v.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (s *BackupService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx, config.WithRegion(s.config.Region))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.config.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Snapshot serializes users and uploads them, returning the object key.
func (s *BackupService) Snapshot(ctx context.Context, users []*models.User) (string, error) {
	taken := s.now().UTC()
	body, err := json.Marshal(UsersSnapshot{TakenAt: taken, Count: len(users), Users: users})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("aws config: %w", err)
	}

	key := SnapshotKey(taken)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}
