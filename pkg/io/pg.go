package io

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/weberc2/extentfs/pkg/pgutil"
	. "github.com/weberc2/extentfs/pkg/types"
)

var _ Device = (*PGDevice)(nil)

// PGDevice stores blocks as rows of a Postgres table. Rows that were never
// written read as zeroes.
type PGDevice struct {
	db     *sql.DB
	volume string
	blocks Block
}

// EnsurePGSchema creates the `volumes` and `blocks` tables if they don't
// exist.
func EnsurePGSchema(db *sql.DB) error {
	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS volumes (
			name VARCHAR(255) PRIMARY KEY,
			block_count BIGINT NOT NULL
		)`,
	); err != nil {
		return fmt.Errorf("creating `volumes` table: %w", err)
	}
	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS blocks (
			volume VARCHAR(255) NOT NULL REFERENCES volumes(name)
				ON DELETE CASCADE,
			idx BIGINT NOT NULL,
			data BYTEA NOT NULL,
			PRIMARY KEY (volume, idx)
		)`,
	); err != nil {
		return fmt.Errorf("creating `blocks` table: %w", err)
	}
	return nil
}

// CreatePGDevice registers a new volume. It fails with `AlreadyExistsErr`
// if the name is taken.
func CreatePGDevice(db *sql.DB, volume string, blocks Block) (*PGDevice, error) {
	if _, err := db.Exec(
		"INSERT INTO volumes (name, block_count) VALUES ($1, $2)",
		volume,
		int64(blocks),
	); err != nil {
		if pgutil.IsUniqueViolation(err) {
			err = AlreadyExistsErr
		}
		return nil, fmt.Errorf("creating postgres volume `%s`: %w", volume, err)
	}
	return &PGDevice{db: db, volume: volume, blocks: blocks}, nil
}

func OpenPGDevice(db *sql.DB, volume string) (*PGDevice, error) {
	var blocks int64
	if err := db.QueryRow(
		"SELECT block_count FROM volumes WHERE name = $1",
		volume,
	).Scan(&blocks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = NotFoundErr
		}
		return nil, fmt.Errorf("opening postgres volume `%s`: %w", volume, err)
	}
	return &PGDevice{db: db, volume: volume, blocks: Block(blocks)}, nil
}

func (device *PGDevice) ReadBlock(block Block, p []byte) error {
	if err := checkBlock(block, device.blocks, BlockSize, p); err != nil {
		return err
	}
	var data []byte
	if err := device.db.QueryRow(
		"SELECT data FROM blocks WHERE volume = $1 AND idx = $2",
		device.volume,
		int64(block),
	).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			for i := range p {
				p[i] = 0
			}
			return nil
		}
		return fmt.Errorf(
			"reading block `%d` of postgres volume `%s`: %w",
			block,
			device.volume,
			err,
		)
	}
	if len(data) != len(p) {
		return fmt.Errorf(
			"reading block `%d` of postgres volume `%s`: found `%d` bytes: %w",
			block,
			device.volume,
			len(data),
			CorruptErr,
		)
	}
	copy(p, data)
	return nil
}

func (device *PGDevice) WriteBlock(block Block, p []byte) error {
	if err := checkBlock(block, device.blocks, BlockSize, p); err != nil {
		return err
	}
	if _, err := device.db.Exec(
		`INSERT INTO blocks (volume, idx, data) VALUES ($1, $2, $3)
		ON CONFLICT (volume, idx) DO UPDATE SET data = EXCLUDED.data`,
		device.volume,
		int64(block),
		p,
	); err != nil {
		return fmt.Errorf(
			"writing block `%d` of postgres volume `%s`: %w",
			block,
			device.volume,
			err,
		)
	}
	return nil
}

func (device *PGDevice) BlockSize() Byte { return BlockSize }

func (device *PGDevice) BlockCount() Block { return device.blocks }

// Sync is a no-op: every write commits on its own.
func (device *PGDevice) Sync() error { return nil }

// Close leaves the shared *sql.DB open; its owner closes it.
func (device *PGDevice) Close() error { return nil }

// Drop deletes the volume and all of its blocks.
func (device *PGDevice) Drop() error {
	if _, err := device.db.Exec(
		"DELETE FROM volumes WHERE name = $1",
		device.volume,
	); err != nil {
		return fmt.Errorf("dropping postgres volume `%s`: %w", device.volume, err)
	}
	return nil
}
