package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

func testRepository(t *testing.T) *SQLiteHistoryRepository {
	t.Helper()
	repo, err := NewSQLiteHistoryRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(url, platform string, outcome domain.ParseOutcome) *domain.ParseRecord {
	rec := domain.NewParseRecord(url, outcome)
	rec.Platform = platform
	return rec
}

func TestSQLiteHistoryRepository_CreateAndFind(t *testing.T) {
	repo := testRepository(t)

	rec := record("https://example.com/v/1", "example", domain.OutcomeResolved)
	rec.Title = "a post"
	rec.Contents = 3
	rec.LatencyMS = 120
	require.NoError(t, repo.Create(rec))

	recent, err := repo.FindRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, rec.ID, recent[0].ID)
	assert.Equal(t, "a post", recent[0].Title)
	assert.Equal(t, 3, recent[0].Contents)
	assert.Equal(t, int64(120), recent[0].LatencyMS)
}

func TestSQLiteHistoryRepository_FindRecentOrdersNewestFirst(t *testing.T) {
	repo := testRepository(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(record("https://example.com/v/1", "example", domain.OutcomeResolved)))
	}

	recent, err := repo.FindRecent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].CreatedAt.After(recent[i-1].CreatedAt))
	}
}

func TestSQLiteHistoryRepository_FindByPlatform(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.Create(record("https://a.example.com/1", "bilibili", domain.OutcomeResolved)))
	require.NoError(t, repo.Create(record("https://b.example.com/2", "weibo", domain.OutcomeResolved)))
	require.NoError(t, repo.Create(record("https://a.example.com/3", "bilibili", domain.OutcomeFailed)))

	records, err := repo.FindByPlatform("bilibili", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "bilibili", r.Platform)
	}
}

func TestSQLiteHistoryRepository_Stats(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.Create(record("u1", "a", domain.OutcomeResolved)))
	require.NoError(t, repo.Create(record("u2", "a", domain.OutcomeResolved)))
	require.NoError(t, repo.Create(record("u3", "", domain.OutcomeNoMatch)))
	require.NoError(t, repo.Create(record("u4", "b", domain.OutcomeDisabled)))
	require.NoError(t, repo.Create(record("u5", "b", domain.OutcomeFailed)))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(2), stats.Resolved)
	assert.Equal(t, int64(1), stats.NoMatch)
	assert.Equal(t, int64(1), stats.Disabled)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestSQLiteHistoryRepository_EmptyStats(t *testing.T) {
	repo := testRepository(t)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
}
