// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package differ renders structural diffs between cache documents.
package differ

import (
	"context"
	"encoding/json"
	"fmt"

	gojsondiff "github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/urfave/cli/v3"
)

// Diff compares exactly two JSON documents and prints an ASCII diff of the
// second relative to the first. Identical documents print a short notice and
// are not an error.
func Diff(ctx context.Context, cmd *cli.Command, docs [][]byte) error {
	if len(docs) != 2 {
		return fmt.Errorf("diff needs exactly two documents, got %d", len(docs))
	}

	d, err := gojsondiff.New().Compare(docs[0], docs[1])
	if err != nil {
		return fmt.Errorf("failed to compare documents: %w", err)
	}

	if !d.Modified() {
		fmt.Println("No differences.")
		return nil
	}

	// The formatter walks the left document and annotates it with the deltas.
	var left map[string]interface{}
	if err := json.Unmarshal(docs[0], &left); err != nil {
		return fmt.Errorf("failed to parse left document: %w", err)
	}

	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       cmd.Bool("color"),
	})
	out, err := f.Format(d)
	if err != nil {
		return fmt.Errorf("failed to format diff: %w", err)
	}

	fmt.Print(out)
	return nil
}
