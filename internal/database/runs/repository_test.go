package runs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.ImportRun{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_Lifecycle(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "r1", Source: "noji", Request: `{}`}))
	run, err := repo.GetRun("r1")
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusQueued, run.Status)

	active, err := repo.GetActiveRun()
	require.NoError(t, err)
	assert.Equal(t, "r1", active.ID)

	require.NoError(t, repo.StartRun("r1"))
	require.NoError(t, repo.UpdateProgress("r1", "Importing cards...", 3, 10))
	run, err = repo.GetRun("r1")
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusRunning, run.Status)
	assert.Equal(t, "Importing cards...", run.Label)
	assert.Equal(t, 3, run.Value)
	assert.Equal(t, 10, run.Max)

	require.NoError(t, repo.CompleteRun("r1", entities.RunStatusSuccess, 10, "w1\nw2", ""))
	run, err = repo.GetRun("r1")
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusSuccess, run.Status)
	assert.Equal(t, 10, run.Cards)
	assert.Equal(t, "w1\nw2", run.Warnings)
	assert.NotNil(t, run.CompletedAt)
	assert.Empty(t, run.Label)

	_, err = repo.GetActiveRun()
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_FailUnfinishedRuns(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "queued", Source: "noji"}))
	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "running", Source: "noji", Status: entities.RunStatusRunning}))
	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "done", Source: "noji", Status: entities.RunStatusSuccess}))

	n, err := repo.FailUnfinishedRuns("interrupted")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	run, err := repo.GetRun("running")
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusFailed, run.Status)
	assert.Equal(t, "interrupted", run.Error)

	recent, err := repo.GetRecentRuns(0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestRepository_DeleteFinishedRuns(t *testing.T) {
	repo := setupTestDB(t)
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "old-done", Source: "noji", Status: entities.RunStatusSuccess, CreatedAt: old}))
	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "old-running", Source: "noji", Status: entities.RunStatusRunning, CreatedAt: old}))
	require.NoError(t, repo.CreateRun(&entities.ImportRun{ID: "new-done", Source: "noji", Status: entities.RunStatusFailed}))

	deleted, err := repo.DeleteFinishedRuns(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetRun("old-done")
	assert.Error(t, err)
	_, err = repo.GetRun("old-running")
	assert.NoError(t, err)
	_, err = repo.GetRun("new-done")
	assert.NoError(t, err)
}
