package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	. "github.com/weberc2/extentfs/pkg/types"
)

func main() {
	app := cli.App{
		Name:  "extentfs",
		Usage: "format, inspect and serve extentfs volumes",
		Description: "The device comes from the config file " +
			"($EXTENTFS_CONFIG_FILE) and EXTENTFS_* environment variables.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the config file",
				EnvVars: []string{"EXTENTFS_CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Aliases:     []string{"format"},
			Description: "create a device and write an empty filesystem to it",
			Flags: []cli.Flag{
				&cli.UintFlag{
					Name:  "blocks",
					Usage: "the size of the volume in blocks; defaults to the config",
				},
			},
			Action: mkfs,
		}, {
			Name:        "statfs",
			Aliases:     []string{"df"},
			Description: "print volume usage",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				statfs, err := env.fs.Statfs()
				if err != nil {
					return err
				}
				return printJSON(&statfs)
			}),
		}, {
			Name:        "stat",
			Description: "print an inode's attributes",
			ArgsUsage:   "PATH",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				ino, err := env.fs.LookupPath(ctx.Args().First())
				if err != nil {
					return err
				}
				stat, err := env.fs.Stat(ino)
				if err != nil {
					return err
				}
				return printJSON(&stat)
			}),
		}, {
			Name:        "ls",
			Description: "list a directory",
			ArgsUsage:   "[DIR]",
			Action:      withFS(ls),
		}, {
			Name:        "tree",
			Description: "print the directory tree as JSON",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				tree, err := env.fs.Tree(InoRoot)
				if err != nil {
					return err
				}
				return printJSON(&tree)
			}),
		}, {
			Name:        "cat",
			Description: "write a file's contents to stdout",
			ArgsUsage:   "PATH",
			Action:      withFS(cat),
		}, {
			Name:        "put",
			Aliases:     []string{"write"},
			Description: "replace a file's contents with a local file or stdin",
			ArgsUsage:   "PATH [SOURCE]",
			Action:      withFS(put),
		}, {
			Name:        "mkdir",
			Description: "create a directory",
			ArgsUsage:   "PATH",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				path, err := requireArg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				_, err = env.fs.CreatePath(path, FileTypeDir)
				return err
			}),
		}, {
			Name:        "ln",
			Description: "create a symbolic link",
			ArgsUsage:   "-s TARGET PATH",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:     "s",
					Usage:    "make a symbolic link (the only kind supported)",
					Required: true,
				},
			},
			Action: withFS(ln),
		}, {
			Name:        "readlink",
			Description: "print a symbolic link's target",
			ArgsUsage:   "PATH",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				ino, err := env.fs.LookupPath(ctx.Args().First())
				if err != nil {
					return err
				}
				target, err := env.fs.Readlink(ino)
				if err != nil {
					return err
				}
				_, err = fmt.Println(target)
				return err
			}),
		}, {
			Name:        "rm",
			Aliases:     []string{"delete"},
			Description: "delete a file, symbolic link or empty directory",
			ArgsUsage:   "PATH",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				path, err := requireArg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				return env.fs.DeletePath(path)
			}),
		}, {
			Name:        "truncate",
			Description: "resize a file",
			ArgsUsage:   "PATH",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:     "size",
					Aliases:  []string{"s"},
					Usage:    "the new size in bytes",
					Required: true,
				},
			},
			Action: withFS(truncate),
		}, {
			Name:        "check",
			Aliases:     []string{"fsck"},
			Description: "verify the volume's bitmaps, counts and block ownership",
			Action: withFS(func(env *environment, ctx *cli.Context) error {
				if err := env.fs.Check(); err != nil {
					return err
				}
				_, err := fmt.Println("ok")
				return err
			}),
		}, {
			Name:        "volume",
			Description: "commands for managing the storage behind the device",
			Subcommands: []*cli.Command{{
				Name:        "schema",
				Aliases:     []string{"ensure"},
				Description: "create the postgres tables if they don't exist",
				Action:      ensureSchema,
			}, {
				Name:        "destroy",
				Aliases:     []string{"delete", "drop"},
				Description: "delete the device's image, objects or rows",
				Action:      destroy,
			}},
		}, {
			Name:        "serve",
			Description: "serve the volume over HTTP",
			Action:      serve,
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
