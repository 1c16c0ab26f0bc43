// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/expire"
	"github.com/staranto/runcachego/internal/meta"
)

var lsExamples = [][2]string{
	{"runcache ls", "list live entries"},
	{"runcache ls -o json --filter kind=string", "string entries as JSON"},
	{"runcache ls --sort expires --titles", "soonest-expiring first with column titles"},
	{"runcache ls --schema", "show the attrs available to --attrs"},
}

// EntryRow is the listing shape of one cache entry. The jsonapi tags become
// the keys of the marshaled document and therefore the attrs the output
// engine sees.
type EntryRow struct {
	Key     string `jsonapi:"primary,entries"`
	Expires string `jsonapi:"attr,expires"`
	TTL     string `jsonapi:"attr,ttl"`
	Kind    string `jsonapi:"attr,kind"`
	Size    string `jsonapi:"attr,size"`
	Value   string `jsonapi:"attr,value"`
}

func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	meta := GetMeta(cmd)
	log.Debugf("Executing action for %v", meta.Args[1:])

	// Bail out early if we're just dumping tldr.
	if ShortCircuitTLDR(ctx, cmd, "ls", lsExamples) {
		return nil
	}

	// Bail out early if we're just dumping the schema.
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(EntryRow{})) {
		return nil
	}

	attrs := BuildAttrs(cmd, ".id:key", "expires", "ttl", "kind", "size", "value")
	log.Debugf("attrs: %v", attrs)

	rc, err := OpenCache(ctx, cmd)
	if err != nil {
		return err
	}

	snap, err := rc.Materialize()
	if err != nil {
		return err
	}

	rows, err := entryRows(snap)
	if err != nil {
		return err
	}

	return EmitJSONAPISlice(rows, attrs, cmd)
}

func LsCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&CacheCommandBuilder{
		Name:      "ls",
		Usage:     "list live cache entries",
		UsageText: `runcache ls [options]`,
		Flags:     append([]cli.Flag{schemaFlag}, NewCacheFlags("ls")...),
		Action:    LsCommandAction,
		Meta:      meta,
	}).Build()
}

// entryRows renders a snapshot into listing rows, sorted by key so the
// default ordering is stable before --sort has its say.
func entryRows(snap cache.Snapshot) ([]*EntryRow, error) {
	keys := snap.Keys()
	sort.Strings(keys)

	rows := make([]*EntryRow, 0, len(keys))
	for _, key := range keys {
		entry := snap[key]

		raw, err := marshalValue(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", key, err)
		}
		value, err := renderValue(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", key, err)
		}

		rows = append(rows, &EntryRow{
			Key:     key,
			Expires: expire.Format(entry.Expires),
			TTL:     humanize.Time(entry.Expires),
			Kind:    valueKind(entry.Value),
			Size:    humanize.Bytes(uint64(len(raw))),
			Value:   value,
		})
	}

	return rows, nil
}

func marshalValue(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return raw, nil
}

// valueKind names the shape a value takes in the cache document. Values that
// never crossed a serialization boundary can still carry native Go types, so
// the integer cases matter.
func valueKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, float32, int, int64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
