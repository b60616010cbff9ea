// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/birdie/internal/db"
)

var seq atomic.Int64

// Open returns a migrated in-memory database private to t. The pool is
// capped at one connection, so concurrent transactions run one after another
// the way row locks would order them on a real server.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        db.Now,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// Seeded is Open plus db.SeedMinimalTestData (users 1 Alice, 2 Bob, 3 Cara).
func Seeded(t testing.TB) *gorm.DB {
	t.Helper()
	gdb := Open(t)
	require.NoError(t, db.SeedMinimalTestData(gdb))
	return gdb
}

// CreateUsers inserts n onboarded users named "User <id>" and returns their ids.
func CreateUsers(t testing.TB, gdb *gorm.DB, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		k := seq.Add(1)
		u := db.User{
			FirebaseUID:    fmt.Sprintf("uid-%d", k),
			Email:          fmt.Sprintf("user%d@test.com", k),
			FullName:       "placeholder",
			OnboardingStep: db.OnboardingComplete,
			IsActive:       true,
		}
		require.NoError(t, gdb.Create(&u).Error)
		require.NoError(t, gdb.Model(&u).Update("full_name", fmt.Sprintf("User %d", u.ID)).Error)
		ids = append(ids, u.ID)
	}
	return ids
}
