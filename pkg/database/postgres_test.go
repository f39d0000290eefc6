package database

import (
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-curriculum-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "app", Password: "secret", Name: "curriculum", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=app password=secret dbname=curriculum sslmode=require", dsn)
}

func TestMigrationSourceIsOrdered(t *testing.T) {
	src, err := MigrationSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	_, err = src.Next(next)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	up, identifier, err := src.ReadUp(next)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "create_catalog_tables", identifier)

	body, err := io.ReadAll(up)
	require.NoError(t, err)
	for _, table := range []string{"subjects", "courses", "course_teachers", "curriculum_topics", "lessons", "course_materials"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
