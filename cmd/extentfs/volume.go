package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/extentfs/pkg/config"
	"github.com/weberc2/extentfs/pkg/io"
	"github.com/weberc2/extentfs/pkg/log"
	"github.com/weberc2/extentfs/pkg/pgutil"
)

func ensureSchema(ctx *cli.Context) error {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if c.Device != config.DevicePostgres {
		return fmt.Errorf("device kind `%s` has no schema", c.Device)
	}
	db, err := pgutil.OpenEnvPing()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := io.EnsurePGSchema(db); err != nil {
		return err
	}
	log.FromContext(ctx.Context).Info("ensured schema")
	return nil
}

func destroy(ctx *cli.Context) error {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := c.DestroyDevice(); err != nil {
		return err
	}
	log.FromContext(ctx.Context).Info(
		"destroyed device",
		"kind", string(c.Device),
		"volume", c.Volume,
	)
	return nil
}
