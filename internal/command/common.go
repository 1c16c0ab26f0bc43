// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"reflect"
	"strings"

	"github.com/hashicorp/jsonapi"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/attrs"
	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/coord"
	"github.com/staranto/runcachego/internal/meta"
	"github.com/staranto/runcachego/internal/output"
	"github.com/staranto/runcachego/internal/seal"
	"github.com/staranto/runcachego/internal/store"
)

// ShortCircuitTLDR checks the --tldr flag and, if set, runs
// `tldr runcache <subcmd>` when the tldr client is installed, falling back to
// the command's built-in examples. Returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string, examples [][2]string) bool {
	if !cmd.Bool("tldr") {
		return false
	}

	if _, err := exec.LookPath("tldr"); err == nil {
		c := exec.CommandContext(ctx, "tldr", "runcache", subcmd)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		_ = c.Run()
		return true
	}

	output.DumpExamples(examples)
	return true
}

// DumpSchemaIfRequested prints the attribute schema for the provided type when
// --schema is set, and returns true if it handled the request.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if cmd.Bool("schema") {
		output.DumpSchema("", t)
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// EmitJSONAPISlice marshals a slice as JSONAPI and passes it to the common
// output routine.
func EmitJSONAPISlice(results any, al attrs.AttrList, cmd *cli.Command) error {
	var raw bytes.Buffer
	if err := jsonapi.MarshalPayload(&raw, results); err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	output.SliceDiceSpit(raw, al, cmd, "data", os.Stdout, nil)
	return nil
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// OpenCache assembles the coordinator, the durable store, and the cache
// facade from the command's flags.
func OpenCache(ctx context.Context, cmd *cli.Command) (*cache.Cache, error) {
	co, err := coord.New(ctx, cmd)
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cmd, co, cmd.String("file"))
	if err != nil {
		return nil, err
	}

	return cache.New(co, co, st, cache.WithSlotKey(cmd.String("slot"))), nil
}

// OpenStore builds the durable store for path, an s3:// URL or a local file.
func OpenStore(ctx context.Context, cmd *cli.Command, locks cache.Locker, path string) (cache.Store, error) {
	var opts []store.Option

	sealer, err := resolveSealer(cmd)
	if err != nil {
		return nil, err
	}
	if sealer != nil {
		opts = append(opts, store.WithSealer(sealer))
	}

	if strings.HasPrefix(path, "s3://") {
		return store.NewS3(ctx, path, locks, opts...)
	}
	return store.NewFile(path, locks, opts...), nil
}

// resolveSealer builds the sealer when a passphrase is available. The
// passphrase flag covers RUNCACHE_PASSPHRASE through its value-source chain,
// and --sealed without one falls back to an interactive prompt.
func resolveSealer(cmd *cli.Command) (*seal.Sealer, error) {
	pass := cmd.String("passphrase")
	if pass == "" && cmd.Bool("sealed") {
		p, err := seal.ReadPassphrase()
		if err != nil {
			return nil, err
		}
		pass = p
	}
	if pass == "" {
		return nil, nil
	}
	return seal.New(pass), nil
}

// renderValue formats a cached value for plain printing. Strings come back
// bare, everything else as JSON.
func renderValue(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}

	raw, err := marshalValue(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CacheCommandBuilder constructs a cli.Command for the cache subcommands
// using a consistent pattern. It accepts the command name, usage text,
// custom flags, the action handler, and meta. The builder automatically wires
// metadata, adds the tldr flag, applies global flags, and sets up validators.
type CacheCommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (ccb *CacheCommandBuilder) Build() *cli.Command {
	return &cli.Command{
		Name:      ccb.Name,
		Usage:     ccb.Usage,
		UsageText: ccb.UsageText,
		Metadata: map[string]any{
			"meta": ccb.Meta,
		},
		Flags: append(ccb.Flags, append([]cli.Flag{
			tldrFlag,
		}, NewGlobalFlags(ccb.Name)...)...),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: ccb.Action,
	}
}
