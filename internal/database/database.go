// Package database opens the MySQL pool behind the document store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenDB creates the primary read/write pool and checks that the server
// answers within five seconds. The DSN must carry parseTime=true.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database: DB_DSN_PRIMARY is not set")
	}

	// 1. Open a new connection pool.
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	// 2. Configure the connection pool settings.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 3. Ping the database to verify the connection.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	log.Println("Database connection pool established successfully")
	return db, nil
}

// documentsSchema holds every collection as JSON documents keyed by
// (collection, id).
const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection VARCHAR(32)  NOT NULL,
	id         VARCHAR(64)  NOT NULL,
	body       JSON         NOT NULL,
	created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
)`

// EnsureSchema creates the documents table when it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("database: schema: %w", err)
	}
	return nil
}
