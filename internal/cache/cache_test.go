package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	require.NotNil(t, cache)
	assert.NoError(t, cache.Ping(context.Background()))
}

func TestCache_JobProgress(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.SetJobProgress(ctx, "job-1", 42.5, time.Minute))

	progress, err := cache.GetJobProgress(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, progress)
}

func TestCache_TopicOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	miss, err := cache.GetTopics(ctx, "br")
	require.NoError(t, err)
	assert.Nil(t, miss)

	topics := []models.Topic{{Title: "Carros Elétricos"}, {Title: "Cibersegurança", Traffic: "20K+"}}
	require.NoError(t, cache.SetTopics(ctx, "br", topics, time.Hour))

	got, err := cache.GetTopics(ctx, "BR")
	require.NoError(t, err)
	assert.Equal(t, topics, got)
}

func TestCache_SearchResults(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	urls := []string{"https://images.example/1.jpg", "https://images.example/2.jpg"}
	require.NoError(t, cache.SetSearchResults(ctx, "Energia Solar", urls, time.Hour))

	got, err := cache.GetSearchResults(ctx, "  energia solar ")
	require.NoError(t, err)
	assert.Equal(t, urls, got)

	mr.FastForward(2 * time.Hour)
	got, err = cache.GetSearchResults(ctx, "energia solar")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Translation(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	source := []string{"Olá", "Tchau"}
	require.NoError(t, cache.SetTranslation(ctx, "en", source, []string{"Hello", "Bye"}, time.Hour))

	got, err := cache.GetTranslation(ctx, "en", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "Bye"}, got)

	other, err := cache.GetTranslation(ctx, "es", source)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := cache.CheckRateLimit(ctx, "pexels", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := cache.CheckRateLimit(ctx, "pexels", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Locking(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	resource := "topic:energia-solar"

	acquired, err := cache.AcquireLock(ctx, resource, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "first lock acquisition should succeed")

	acquired, err = cache.AcquireLock(ctx, resource, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "second lock acquisition should fail")

	require.NoError(t, cache.ReleaseLock(ctx, resource))

	acquired, err = cache.AcquireLock(ctx, resource, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "lock acquisition after release should succeed")
}
