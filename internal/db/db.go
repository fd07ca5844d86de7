// Package db implements the connection-pooled MySQL storage layer
// backing the users cache (spec §4.K). It stands in for the original's
// hand-rolled semaphore-guarded connection pool: database/sql already
// pools and synchronizes connections, so that part of the original is
// not reimplemented, only configured to the same fixed pool size.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config names the connection the pool is opened against and the pool's
// fixed size, matching the original's sql_num config key.
type Config struct {
	DSN      string
	PoolSize int
}

// Pool wraps a *sql.DB sized to Config.PoolSize open connections.
type Pool struct {
	db *sql.DB
}

// Open connects and sizes the pool. It does not verify connectivity;
// call Ping for that.
func Open(cfg Config) (*Pool, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	n := cfg.PoolSize
	if n <= 0 {
		n = 8
	}
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	db.SetConnMaxLifetime(time.Hour)
	return &Pool{db: db}, nil
}

// Ping verifies connectivity with a bounded timeout.
func (p *Pool) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.db.PingContext(ctx)
}

// LoadUsers fetches the full username/password table, matching the
// original's init_mysql_result bulk load into memory at startup.
func (p *Pool) LoadUsers(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT username, passwd FROM user")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, password string
		if err := rows.Scan(&name, &password); err != nil {
			return nil, err
		}
		out[name] = password
	}
	return out, rows.Err()
}

// InsertUser adds one row to the user table, used by the registration
// CGI branch via users.Store.Register.
func (p *Pool) InsertUser(name, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := p.db.ExecContext(ctx, "INSERT INTO user(username, passwd) VALUES (?, ?)", name, password)
	if err != nil {
		return fmt.Errorf("db: insert user: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Pool) Close() error {
	return p.db.Close()
}
