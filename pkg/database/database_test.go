package database

import (
	"testing"

	"watchlearn/internal/config"
	"watchlearn/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, Path: ":memory:"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestInitDBAndMigrate_SQLite(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "release")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []interface{}{&model.Quiz{}, &model.QuizAttempt{}, &model.XPTransaction{}, &model.Ban{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}
