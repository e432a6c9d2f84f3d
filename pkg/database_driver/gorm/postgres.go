package gorm

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Deer-Spangle/hoardbooru-bot/configs"
)

// NewPostgresConnection func - opens a gorm connection to postgres from config
func NewPostgresConnection(cfg configs.Database) (*gorm.DB, error) {
	sslmode := "disable"
	if cfg.SSLMode {
		sslmode = "require"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DbName, sslmode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
