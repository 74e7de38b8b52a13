package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilhq/veil/internal/model"
)

func setupTestStore(t *testing.T) *SQLitePatternStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "patterns.db")
	store, err := NewSQLitePatternStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestAddAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = store.Add(ctx, model.RAGPattern{
		PatternText: `\b\d{3}-\d{2}-\d{4}\b`,
		Type:        model.TypeSSN,
		ExampleText: "123-45-6789",
	})
	require.NoError(t, err)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddDuplicateIgnored(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	p := model.RAGPattern{PatternText: `\b\d{9}\b`, Type: model.TypeRoutingNumber}
	require.NoError(t, store.Add(ctx, p))
	require.NoError(t, store.Add(ctx, p))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, model.RAGPattern{PatternText: "  ", Type: model.TypeSSN})
	assert.Error(t, err)

	err = store.Add(ctx, model.RAGPattern{PatternText: "x", Type: model.PIIType("not_a_type")})
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx))
	first, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(defaultPatterns), first)

	require.NoError(t, store.Seed(ctx))
	second, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchRanksByRelevance(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx))

	results, err := store.Search(ctx, "account number 1234-5678-9012-3456 near the header", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, model.TypeAccountNumber, results[0].Type,
		"a verbatim example match must rank first")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchTopKBoundsResults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx))

	results, err := store.Search(ctx, "phone number (555) 123-4567 email ssn name", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)

	none, err := store.Search(ctx, "phone", 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSearchNoMatches(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx))

	results, err := store.Search(ctx, "zzzz qqqq", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := model.RAGPattern{PatternText: "one two", Type: model.TypePersonName}
	second := model.RAGPattern{PatternText: "three four", Type: model.TypeAddress}
	require.NoError(t, store.Add(ctx, first))
	require.NoError(t, store.Add(ctx, second))

	patterns, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, first.PatternText, patterns[0].PatternText)
	assert.Equal(t, second.PatternText, patterns[1].PatternText)
}
