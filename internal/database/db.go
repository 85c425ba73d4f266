package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config addresses the MySQL server holding the ledger tables.
type Config struct {
	User     string
	Password string // may be empty
	Host     string
	Port     string
	Name     string
}

// DSN renders c for the mysql driver. Times are parsed as UTC.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Collation = "utf8mb4_unicode_ci"
	return mc.FormatDSN()
}

// Open connects to MySQL and pings it within five seconds.
func Open(ctx context.Context, c Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", c.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", net.JoinHostPort(c.Host, c.Port), err)
	}
	return db, nil
}

// schema holds the ledger tables. A page is a row of ledger_pages; its header
// and data rows live in ledger_rows in insertion (id) order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_pages (
		ledger_id  VARCHAR(64)  NOT NULL,
		page_index INT UNSIGNED NOT NULL,
		name       VARCHAR(64)  NOT NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (ledger_id, page_index)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ledger_rows (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		ledger_id  VARCHAR(64)     NOT NULL,
		page_index INT UNSIGNED    NOT NULL,
		is_header  TINYINT(1)      NOT NULL DEFAULT 0,
		cells      JSON            NOT NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_ledger_rows_page (ledger_id, page_index, id),
		CONSTRAINT fk_ledger_rows_page FOREIGN KEY (ledger_id, page_index)
			REFERENCES ledger_pages (ledger_id, page_index)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the ledger tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
