package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// undefinedTable is the SQLSTATE Postgres reports for a missing relation.
const undefinedTable = "42P01"

const (
	createCoinsTable = `CREATE TABLE coins (
	coin_id   SERIAL PRIMARY KEY,
	coin_name CHAR(20) NOT NULL UNIQUE
)`

	createPricesTable = `CREATE TABLE prices (
	p_id      VARCHAR PRIMARY KEY,
	coin_id   INT NOT NULL REFERENCES coins (coin_id),
	price     FLOAT NOT NULL,
	volume    FLOAT NOT NULL,
	time_secs BIGINT NOT NULL,
	date      VARCHAR NOT NULL
)`

	createPricesIndex = `CREATE INDEX idx_prices_coin_time ON prices (coin_id, time_secs)`
)

// CreateSchema drops any existing tables and creates coins and prices from scratch.
func (p *PostgresClient) CreateSchema(ctx context.Context) error {
	if err := p.DropSchema(ctx); err != nil {
		return err
	}

	db := p.DB.WithContext(ctx)
	for _, stmt := range []string{createCoinsTable, createPricesTable, createPricesIndex} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// DropSchema removes both tables if present. prices goes first because it references coins.
func (p *PostgresClient) DropSchema(ctx context.Context) error {
	db := p.DB.WithContext(ctx)
	for _, table := range []string{"prices", "coins"} {
		if err := db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}

// IsMissingTable reports whether err comes from querying a table that does not exist.
func IsMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
