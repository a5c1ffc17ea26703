package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// exerciseSlots runs the common slot contract against an implementation.
func exerciseSlots(t *testing.T, slots Slots) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := slots.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slots.Set(ctx, "access", "A1"))
	require.NoError(t, slots.Set(ctx, "access", "A2"))
	value, ok, err := slots.Get(ctx, "access")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A2", value)

	require.NoError(t, slots.Delete(ctx, "access"))
	_, ok, err = slots.Get(ctx, "access")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slots.Delete(ctx, "access"))
}

func TestMemorySlots(t *testing.T) {
	exerciseSlots(t, NewMemorySlots())
}

func TestFileSlots(t *testing.T) {
	dir := t.TempDir()
	exerciseSlots(t, NewFileSlots(dir))
}

func TestFileSlots_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := New(NewFileSlots(dir))
	require.NoError(t, first.Save(ctx, &oauth2.Token{AccessToken: "A", RefreshToken: "R"}))

	_, err := os.Stat(filepath.Join(dir, "access.token"))
	require.NoError(t, err)

	second := New(NewFileSlots(dir))
	tok := second.Load(ctx)
	assert.Equal(t, "A", tok.AccessToken)
	assert.Equal(t, "R", tok.RefreshToken)
}

func TestSealed(t *testing.T) {
	key := DeriveKey([]byte("correct horse"), []byte("device-1"))
	require.Len(t, key, KeySize)

	inner := NewMemorySlots()
	sealed, err := Sealed(inner, key)
	require.NoError(t, err)
	exerciseSlots(t, sealed)

	ctx := context.Background()
	require.NoError(t, sealed.Set(ctx, "refresh", "R-secret"))
	raw, ok, err := inner.Get(ctx, "refresh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "R-secret")

	t.Run("swapped slot", func(t *testing.T) {
		require.NoError(t, inner.Set(ctx, "access", raw))
		_, _, err := sealed.Get(ctx, "access")
		require.ErrorIs(t, err, ErrSealed)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := Sealed(inner, DeriveKey([]byte("wrong"), []byte("device-1")))
		require.NoError(t, err)
		_, _, err = other.Get(ctx, "refresh")
		require.ErrorIs(t, err, ErrSealed)
	})

	t.Run("garbage", func(t *testing.T) {
		require.NoError(t, inner.Set(ctx, "refresh", "!!not-base64!!"))
		_, _, err := sealed.Get(ctx, "refresh")
		require.ErrorIs(t, err, ErrSealed)
	})

	t.Run("short key", func(t *testing.T) {
		_, err := Sealed(inner, []byte("short"))
		require.Error(t, err)
	})
}

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) id(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value + "|" + key["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[f.id(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[f.id(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, f.id(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoSlots(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	exerciseSlots(t, NewDynamoSlots(fake, "Tokens", "DEVICE#1"))

	slots := NewDynamoSlots(fake, "Tokens", "DEVICE#1")
	require.NoError(t, slots.Set(context.Background(), "refresh", "R"))
	item := fake.items["DEVICE#1|SLOT#refresh"]
	require.NotNil(t, item)
	assert.Equal(t, "R", item["Value"].(*types.AttributeValueMemberS).Value)
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisSlots(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{}}
	exerciseSlots(t, NewRedisSlots(fake, "apiclient:"))

	slots := NewRedisSlots(fake, "apiclient:")
	require.NoError(t, slots.Set(context.Background(), "refresh", "R"))
	assert.Equal(t, "R", fake.values["apiclient:refresh"])
}

func TestRedisSlots_Error(t *testing.T) {
	slots := NewRedisSlots(brokenRedis{}, "apiclient:")
	_, ok, err := slots.Get(context.Background(), "access")
	assert.Error(t, err)
	assert.False(t, ok)
}

type brokenRedis struct{}

func (brokenRedis) Get(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", errors.New("connection refused"))
}

func (brokenRedis) Set(context.Context, string, interface{}, time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("", errors.New("connection refused"))
}

func (brokenRedis) Del(context.Context, ...string) *redis.IntCmd {
	return redis.NewIntResult(0, errors.New("connection refused"))
}

func TestRedisSlots_Server(t *testing.T) {
	addr := os.Getenv("APICLIENT_REDIS_ADDR")
	if addr == "" {
		t.Skip("APICLIENT_REDIS_ADDR is not set; skipping Redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable at %v: %v", addr, err)
	}
	exerciseSlots(t, NewRedisSlots(client, "apiclient-test:"))
}

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.value
	return nil
}

// fakePgx answers the four statements PostgresSlots issues.
type fakePgx struct {
	mu      sync.Mutex
	values  map[string]string
	created bool
}

func (f *fakePgx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasPrefix(sql, "CREATE TABLE"):
		f.created = true
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.HasPrefix(sql, "INSERT"):
		f.values[args[0].(string)] = args[1].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "DELETE"):
		delete(f.values, args[0].(string))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected statement: %v", sql)
}

func (f *fakePgx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: value}
}

func TestPostgresSlots(t *testing.T) {
	fake := &fakePgx{values: map[string]string{}}
	slots := NewPostgresSlots(fake, "apiclient_slots")
	require.NoError(t, slots.Migrate(context.Background()))
	assert.True(t, fake.created)
	exerciseSlots(t, slots)
}

func TestPostgresSlots_Server(t *testing.T) {
	dsn := os.Getenv("APICLIENT_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("APICLIENT_POSTGRES_DSN is not set; skipping Postgres integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}

	slots := NewPostgresSlots(pool, "apiclient_test_slots")
	require.NoError(t, slots.Migrate(ctx))
	exerciseSlots(t, slots)
}
