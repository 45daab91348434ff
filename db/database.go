package db

import (
	"database/sql"
	"fmt"
	"log"

	"jzonefm/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := createCommentsTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		avatar_url VARCHAR(767),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Println("Users table initialized successfully (or already exists).")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id VARCHAR(36) PRIMARY KEY,
		owner_id INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255),
		album VARCHAR(255),
		audio_path VARCHAR(767) NOT NULL,
		cover_path VARCHAR(767),
		duration DOUBLE NOT NULL DEFAULT 0,
		trim_start DOUBLE NOT NULL DEFAULT 0,
		trim_end DOUBLE NOT NULL DEFAULT 0,
		visibility VARCHAR(16) NOT NULL DEFAULT 'private',
		plays_count BIGINT NOT NULL DEFAULT 0,
		added_at BIGINT NOT NULL,
		CONSTRAINT fk_owner_tracks FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	log.Println("Tracks table initialized successfully (or already exists).")
	return nil
}

func createCommentsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS comments (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		track_id VARCHAR(36) NOT NULL,
		user_id INT NOT NULL,
		username VARCHAR(100) NOT NULL,
		avatar_url VARCHAR(767),
		text TEXT NOT NULL,
		anchor_offset DOUBLE NOT NULL DEFAULT 0,
		likes INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_track_comments FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE,
		INDEX idx_comments_track (track_id)
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}
	log.Println("Comments table initialized successfully (or already exists).")
	return nil
}
