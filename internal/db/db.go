package db

import (
	"fmt"

	"flowgen/internal/config"
	"flowgen/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.Config) error {
	gdb, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(gdb); err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Migrate creates or updates the schema. Split out so tests can run it
// against their own in-memory database.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.WorkflowRequest{},
		&model.LearnedExample{},
		&model.LearningLog{},
		&model.LLMConfig{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
