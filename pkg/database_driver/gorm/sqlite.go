package gorm

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Deer-Spangle/hoardbooru-bot/configs"
)

// NewSqliteConnection func - opens a gorm connection to a sqlite file from config
func NewSqliteConnection(cfg configs.Database) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "hoardbooru_bot.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
