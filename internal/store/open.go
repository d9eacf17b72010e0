package store

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/config"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/database"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3ObjectName = "users.json"

// Open builds the backend selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (UserStore, error) {
	switch cfg.StoreDriver {
	case "", config.StoreDriverFile:
		return NewFileStore(cfg.StoreFilePath)

	case config.StoreDriverPostgres:
		if err := database.Connect(cfg); err != nil {
			return nil, err
		}
		if err := database.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate users: %w", err)
		}
		return NewGormStore(database.DB), nil

	case config.StoreDriverRedis:
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.RedisKeyPrefix), nil

	case config.StoreDriverS3:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix+s3ObjectName), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
