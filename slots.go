package apiclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/superapp/apiclient/auth/store"
	"github.com/superapp/apiclient/config"
)

// NewSlots opens the slot backend selected by cfg.Store.Kind and seals it
// when a passphrase is configured. The returned closer may be nil.
func NewSlots(ctx context.Context, cfg *config.Config) (store.Slots, func() error, error) {
	slots, closer, err := openSlots(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Passphrase == "" {
		return slots, closer, nil
	}
	key := store.DeriveKey([]byte(cfg.Store.Passphrase), []byte(cfg.Store.Salt))
	sealed, err := store.Sealed(slots, key)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, nil, err
	}
	return sealed, closer, nil
}

func openSlots(ctx context.Context, cfg *config.Config) (store.Slots, func() error, error) {
	switch cfg.Store.Kind {
	case config.StoreMemory:
		return store.NewMemorySlots(), nil, nil
	case config.StoreFile, "":
		baseURL := cfg.Store.URL
		if baseURL == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to locate user config dir: %w", err)
			}
			baseURL = filepath.Join(dir, "apiclient")
		}
		return store.NewFileSlots(baseURL), nil, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis %v: %w", cfg.Redis.Addr, err)
		}
		return store.NewRedisSlots(client, cfg.Redis.Prefix), client.Close, nil
	case config.StoreDynamoDB:
		client, err := newDynamoClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, nil, err
		}
		return store.NewDynamoSlots(client, cfg.DynamoDB.Table, cfg.DynamoDB.Partition), nil, nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		slots := store.NewPostgresSlots(pool, cfg.Postgres.Table)
		if err = slots.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return slots, func() error { pool.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store kind: %q", cfg.Store.Kind)
}

func newDynamoClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Endpoint != "" {
		loadOptions = append(loadOptions, awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			})))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}
