// Package pgutil opens Postgres connections from the conventional `PG_*`
// environment variables.
package pgutil

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/lib/pq"
)

// Params are libpq connection parameters.
type Params struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ParamsFromEnv reads `PG_HOST`, `PG_PORT`, `PG_USER`, `PG_PASS`,
// `PG_DB_NAME` and `PG_SSL_MODE`, defaulting to a local unauthenticated
// server.
func ParamsFromEnv() Params {
	return Params{
		Host:     getEnv("PG_HOST", "localhost"),
		Port:     getEnv("PG_PORT", "5432"),
		User:     getEnv("PG_USER", "postgres"),
		Password: getEnv("PG_PASS", ""),
		DBName:   getEnv("PG_DB_NAME", "postgres"),
		SSLMode:  getEnv("PG_SSL_MODE", "disable"),
	}
}

func (p *Params) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

func Open(params *Params) (*sql.DB, error) {
	connector, err := pq.NewConnector(params.DSN())
	if err != nil {
		return nil, fmt.Errorf(
			"opening postgres database `%s` on `%s`: %w",
			params.DBName,
			params.Host,
			err,
		)
	}
	return sql.OpenDB(connector), nil
}

func OpenEnv() (*sql.DB, error) {
	params := ParamsFromEnv()
	return Open(&params)
}

func OpenEnvPing() (*sql.DB, error) {
	db, err := OpenEnv()
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres database: %w", err)
	}

	return db, nil
}

const uniqueViolation pq.ErrorCode = "23505"

// IsUniqueViolation reports whether `err` wraps a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func getEnv(env, def string) string {
	x := os.Getenv(env)
	if x == "" {
		return def
	}
	return x
}
