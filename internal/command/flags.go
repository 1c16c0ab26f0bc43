// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/config"
	"github.com/staranto/runcachego/internal/runfile"
	"github.com/staranto/runcachego/internal/store"
)

func init() {
	cfg, _ = config.Load("")
}

var (
	cfg config.Type

	schemaFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "schema",
		Usage:       "dump the schema",
		HideDefault: true,
	}

	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
)

func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"color", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("color", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"output", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"sort", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"titles", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("titles", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
	}

	return
}

// NewCacheFlags constructs the flags shared by every command that opens the
// cache: where the durable document lives, which slot to coordinate through,
// how long new entries live, and whether the document is sealed.
func NewCacheFlags(ns string) (flags []cli.Flag) {
	flags = []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "file",
			Usage: "durable cache document, a path or an s3:// URL",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("RUNCACHE_FILE"),
			),
			Value: store.DefaultFileName,
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "slot",
			Usage: "distributed slot key shared by the run's workers",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("RUNCACHE_SLOT"),
			),
			Value: cache.DefaultSlotKey,
		}),
		&cli.IntFlag{
			Name:  "ttl",
			Usage: "time-to-live, in seconds, for new entries",
			Value: cache.DefaultTTL,
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"ttl", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("ttl", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolFlag{
			Name:        "sealed",
			Usage:       "the cache document is sealed; prompt for a passphrase if none is given",
			HideDefault: true,
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Aliases: []string{"p"},
			Usage:   "passphrase for a sealed cache document",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("RUNCACHE_PASSPHRASE"),
			),
		},
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "coord",
			Usage: "URL of a remote coordination service",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("RUNCACHE_COORD"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "token",
			Usage: "bearer token for the remote coordination service",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("RUNCACHE_TOKEN"),
			),
		}),
	}

	return
}

// NewRunFlags constructs the flags specific to the run command.
func NewRunFlags(ns string) (flags []cli.Flag) {
	flags = []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "runfile",
			Usage: "task definition file",
			Value: runfile.DefaultName,
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, &cli.StringFlag{
			Name:  "env",
			Usage: "environment name exposed to runfile tasks",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("RUNCACHE_ENV"),
			),
		}),
		&cli.BoolFlag{
			Name:        "refresh",
			Usage:       "drop the cached value and recompute",
			HideDefault: true,
		},
	}

	return
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// pathHas checks if the given binary exists on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
