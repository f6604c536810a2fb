package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/extentfs/pkg/api"
	"github.com/weberc2/extentfs/pkg/config"
	"github.com/weberc2/extentfs/pkg/fs"
	"github.com/weberc2/extentfs/pkg/log"
	pz "github.com/weberc2/httpeasy"
)

const shutdownTimeout = 10 * time.Second

// serve mounts the volume and serves it until SIGINT or SIGTERM. A `memory`
// device is formatted first since it starts out blank.
func serve(ctx *cli.Context) (err error) {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := log.FromContext(ctx.Context)
	env := environment{config: c, logger: logger}
	if env.device, err = c.OpenDevice(); err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	defer func() {
		if closeErr := env.device.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing device: %w", closeErr)
		}
	}()
	if c.Device == config.DeviceMemory {
		if err := fs.Format(env.device, env.options()); err != nil {
			return err
		}
	}
	if env.fs, err = fs.Mount(env.device, env.options()); err != nil {
		return err
	}
	defer func() {
		if unmountErr := env.fs.Unmount(); unmountErr != nil && err == nil {
			err = unmountErr
		}
	}()

	server := http.Server{
		Addr: c.Addr,
		Handler: pz.Register(
			pz.JSONLog(os.Stderr),
			(&api.API{FileSystem: env.fs}).Routes()...,
		),
	}

	signals, stop := signal.NotifyContext(
		ctx.Context,
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()
	go func() {
		<-signals.Done()
		shutdown, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := server.Shutdown(shutdown); err != nil {
			log.FromContext(signals).Error(
				"shutting down server",
				"err", err.Error(),
			)
		}
	}()

	logger.Info("listening", "addr", c.Addr, "mount", env.fs.ID().String())
	if err := server.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
