package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAchievementMarshalsNilMembersAsArray(t *testing.T) {
	a := Achievement{Title: "Hack Day"}
	a.Stamp("0b7c6d7e-0000-4000-8000-000000000001", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "Hack Day", decoded["title"])
	assert.Equal(t, []any{}, decoded["members"])
	assert.Nil(t, decoded["github"])
	assert.Contains(t, decoded, "github")
	assert.Equal(t, "0b7c6d7e-0000-4000-8000-000000000001", decoded["id"])
	assert.Equal(t, "2025-03-01T00:00:00Z", decoded["createdAt"])
}

func TestColumnReportFindsDrift(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(All()...))

	total, err := ColumnReport(db)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	require.NoError(t, db.Exec("ALTER TABLE projects ADD COLUMN legacy_slug text").Error)

	total, err = ColumnReport(db)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestFindColumnMismatches(t *testing.T) {
	got := findColumnMismatches([]string{"id", "Title", "zeta", "alpha"}, []string{"id", "title"})
	assert.Equal(t, []string{"alpha", "zeta"}, got)
}
