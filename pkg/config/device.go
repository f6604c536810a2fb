package config

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/weberc2/extentfs/pkg/io"
	"github.com/weberc2/extentfs/pkg/objectstore"
	"github.com/weberc2/extentfs/pkg/pgutil"
	. "github.com/weberc2/extentfs/pkg/types"
)

// CreateDevice makes a new, unformatted device of `c.Blocks` blocks.
func (c *Config) CreateDevice() (io.Device, error) {
	return c.device(true)
}

// OpenDevice opens an existing device.
func (c *Config) OpenDevice() (io.Device, error) {
	return c.device(false)
}

func (c *Config) device(create bool) (io.Device, error) {
	switch c.Device {
	case DeviceFile:
		if create {
			return io.CreateFile(c.Image, Block(c.Blocks))
		}
		return io.OpenFile(c.Image)
	case DeviceMemory:
		return io.NewBuffer(Block(c.Blocks)), nil
	case DeviceS3:
		s3, err := objectstore.NewS3ObjectStore(c.Region)
		if err != nil {
			return nil, err
		}
		var store objectstore.ObjectStore = s3
		if c.Gzip {
			store = &objectstore.GzipObjectStore{ObjectStore: s3}
		}
		if create {
			return io.CreateObjectDevice(store, c.Bucket, c.Volume, Block(c.Blocks))
		}
		return io.OpenObjectDevice(store, c.Bucket, c.Volume)
	case DevicePostgres:
		db, err := pgutil.OpenEnvPing()
		if err != nil {
			return nil, err
		}
		device, err := c.pgDevice(db, create)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &dbDevice{Device: device, db: db}, nil
	default:
		return nil, fmt.Errorf(
			"opening device: unsupported kind `%s`: %w",
			c.Device,
			InvalidArgumentErr,
		)
	}
}

func (c *Config) pgDevice(db *sql.DB, create bool) (io.Device, error) {
	if err := io.EnsurePGSchema(db); err != nil {
		return nil, err
	}
	if create {
		return io.CreatePGDevice(db, c.Volume, Block(c.Blocks))
	}
	return io.OpenPGDevice(db, c.Volume)
}

// dbDevice closes its database connection pool along with the device.
type dbDevice struct {
	io.Device
	db *sql.DB
}

func (device *dbDevice) Close() error {
	if err := device.Device.Close(); err != nil {
		device.db.Close()
		return err
	}
	return device.db.Close()
}

// DestroyDevice deletes the configured device's storage: the image file, the
// volume's objects or the volume's rows.
func (c *Config) DestroyDevice() error {
	switch c.Device {
	case DeviceFile:
		if err := os.Remove(c.Image); err != nil {
			return fmt.Errorf("destroying device: %w", err)
		}
		return nil
	case DeviceMemory:
		return nil
	}

	device, err := c.OpenDevice()
	if err != nil {
		return fmt.Errorf("destroying device: %w", err)
	}
	defer device.Close()
	switch d := device.(type) {
	case *io.ObjectDevice:
		return d.Destroy()
	case *dbDevice:
		if pg, ok := d.Device.(*io.PGDevice); ok {
			return pg.Drop()
		}
	}
	return fmt.Errorf(
		"destroying device: unsupported kind `%s`: %w",
		c.Device,
		InvalidArgumentErr,
	)
}
