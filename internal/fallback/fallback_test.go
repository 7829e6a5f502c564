package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return v, nil }
}

func fail(msg string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", errors.New(msg) }
}

func TestChain_FirstProviderWins(t *testing.T) {
	out, err := New[string]().
		Then("serpapi", ok("a")).
		Then("rss", ok("b")).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "a", out.Value)
	assert.Equal(t, "serpapi", out.Source)
	assert.False(t, out.Degraded())
}

func TestChain_FallsThrough(t *testing.T) {
	var failed []string
	out, err := New[string]().
		Then("serpapi", fail("quota")).
		Then("rss", ok("b")).
		OnFailure(func(p string, err error) { failed = append(failed, p) }).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "b", out.Value)
	assert.Equal(t, "rss", out.Source)
	assert.True(t, out.Degraded())
	assert.Equal(t, []string{"serpapi"}, failed)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, "quota", out.Attempts[0].Err)
}

func TestChain_Backup(t *testing.T) {
	out, err := New[string]().
		Then("serpapi", fail("down")).
		WithBackup("fixed").
		Run(context.Background())

	require.NoError(t, err)
	assert.True(t, out.UsedBackup())
	assert.Equal(t, "fixed", out.Value)
}

func TestChain_AllFailed(t *testing.T) {
	_, err := New[string]().
		Then("a", fail("x")).
		Then("b", fail("y")).
		Run(context.Background())

	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.Contains(t, err.Error(), "a: x; b: y")
}

func TestChain_NoProviders(t *testing.T) {
	_, err := New[int]().Run(context.Background())
	assert.ErrorIs(t, err, ErrAllProvidersFailed)

	out, err := New[int]().WithBackup(7).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, out.Value)
}

func TestChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New[string]().Then("a", ok("a")).WithBackup("b").Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
