package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/extentfs/pkg/config"
	"github.com/weberc2/extentfs/pkg/fs"
	extentio "github.com/weberc2/extentfs/pkg/io"
	"github.com/weberc2/extentfs/pkg/log"
	. "github.com/weberc2/extentfs/pkg/types"
)

type environment struct {
	config *config.Config
	logger *slog.Logger
	device extentio.Device
	fs     *fs.FileSystem
}

// loadConfig loads and validates the config and installs the configured
// logger in `ctx` for log.FromContext.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	c, err := config.LoadWithFile(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger, err := log.New(os.Stderr, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	slog.SetDefault(logger)
	ctx.Context = log.Context(ctx.Context, logger)
	return c, nil
}

func (env *environment) options() *fs.Options {
	return &fs.Options{
		Logger:        env.logger,
		CacheCapacity: env.config.CacheCapacity,
		UID:           uint32(os.Getuid()),
		GID:           uint32(os.Getgid()),
	}
}

// withFS mounts the configured device around `f` and unmounts it afterwards,
// syncing whatever `f` changed.
func withFS(f func(*environment, *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		c, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		env := environment{config: c, logger: log.FromContext(ctx.Context)}
		if env.device, err = c.OpenDevice(); err != nil {
			return fmt.Errorf("opening device: %w", err)
		}
		defer func() {
			if closeErr := env.device.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("closing device: %w", closeErr)
			}
		}()

		if env.fs, err = fs.Mount(env.device, env.options()); err != nil {
			return err
		}
		defer func() {
			if unmountErr := env.fs.Unmount(); unmountErr != nil && err == nil {
				err = unmountErr
			}
		}()
		return f(&env, ctx)
	}
}

func mkfs(ctx *cli.Context) error {
	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if blocks := ctx.Uint("blocks"); blocks > 0 {
		c.Blocks = uint32(blocks)
	}
	device, err := c.CreateDevice()
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	if err := fs.Format(device, &fs.Options{
		Logger: log.FromContext(ctx.Context),
		UID:    uint32(os.Getuid()),
		GID:    uint32(os.Getgid()),
	}); err != nil {
		device.Close()
		return err
	}
	return device.Close()
}

func requireArg(ctx *cli.Context, i int, name string) (string, error) {
	if ctx.NArg() <= i {
		return "", fmt.Errorf("missing required argument `%s`", name)
	}
	return ctx.Args().Get(i), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling to JSON: %w", err)
	}
	if _, err := fmt.Printf("%s\n", data); err != nil {
		return fmt.Errorf("writing JSON to stdout: %w", err)
	}
	return nil
}

func ls(env *environment, ctx *cli.Context) error {
	ino, err := env.fs.LookupPath(ctx.Args().First())
	if err != nil {
		return err
	}
	entries, err := env.fs.ReadDir(ino)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i := range entries {
		stat, err := env.fs.Stat(entries[i].Ino)
		if err != nil {
			return err
		}
		fmt.Fprintf(
			w,
			"%d\t%s\t%#o\t%d\t%s\n",
			entries[i].Ino,
			entries[i].FileType,
			stat.Perm,
			stat.Size,
			entries[i].Name,
		)
	}
	return w.Flush()
}

func cat(env *environment, ctx *cli.Context) error {
	path, err := requireArg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	data, err := env.fs.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}
	return nil
}

func put(env *environment, ctx *cli.Context) error {
	path, err := requireArg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	var source io.Reader = os.Stdin
	if ctx.NArg() > 1 {
		file, err := os.Open(ctx.Args().Get(1))
		if err != nil {
			return fmt.Errorf("opening source: %w", err)
		}
		defer file.Close()
		source = file
	}
	data, err := io.ReadAll(io.LimitReader(source, int64(MaxFileSize)+1))
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	if Byte(len(data)) > MaxFileSize {
		return fmt.Errorf(
			"source exceeds the maximum file size `%d`: %w",
			MaxFileSize,
			InvalidArgumentErr,
		)
	}
	ino, err := env.fs.WriteFile(path, data)
	if err != nil {
		return err
	}
	env.logger.Info("wrote file", "path", path, "ino", ino, "size", len(data))
	return nil
}

func ln(env *environment, ctx *cli.Context) error {
	target, err := requireArg(ctx, 0, "TARGET")
	if err != nil {
		return err
	}
	path, err := requireArg(ctx, 1, "PATH")
	if err != nil {
		return err
	}
	_, err = env.fs.SymlinkPath(path, target)
	return err
}

func truncate(env *environment, ctx *cli.Context) error {
	path, err := requireArg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	ino, err := env.fs.LookupPath(path)
	if err != nil {
		return err
	}
	return env.fs.Truncate(ino, Byte(ctx.Int64("size")))
}
