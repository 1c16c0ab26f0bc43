// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestDiff_IdenticalDocuments(t *testing.T) {
	doc := []byte(`{"kw-token-": {"value": "abc", "expires": "2026-01-01T00:00:00"}}`)

	err := Diff(context.Background(), &cli.Command{}, [][]byte{doc, doc})
	assert.NoError(t, err)
}

func TestDiff_ChangedDocuments(t *testing.T) {
	left := []byte(`{"kw-token-": {"value": "abc"}}`)
	right := []byte(`{"kw-token-": {"value": "xyz"}}`)

	err := Diff(context.Background(), &cli.Command{}, [][]byte{left, right})
	assert.NoError(t, err)
}

func TestDiff_WrongDocumentCount(t *testing.T) {
	doc := []byte(`{}`)

	err := Diff(context.Background(), &cli.Command{}, [][]byte{doc})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exactly two documents")
}

func TestDiff_Garbage(t *testing.T) {
	left := []byte(`not json`)
	right := []byte(`{}`)

	err := Diff(context.Background(), &cli.Command{}, [][]byte{left, right})
	assert.Error(t, err)
}
