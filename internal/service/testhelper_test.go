package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"flowgen/internal/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB points the global handle at a fresh in-memory database
// for the duration of one test.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	prev := db.DB
	db.DB = gdb
	t.Cleanup(func() { db.DB = prev })
}

// fakeProvider replays a scripted sequence of completions.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeProvider) Complete(_ context.Context, _ string, user string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, user)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", fmt.Errorf("fake provider exhausted after %d calls", i)
}
