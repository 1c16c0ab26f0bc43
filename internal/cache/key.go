// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"strings"
)

const (
	keyPrefix = "kw-"
	argJoiner = "::"
)

// DeriveKey builds a cache key from an operation name and its ordered
// arguments. The name is lowercased with spaces folded to underscores, and
// the arguments are joined verbatim, so two calls that mean the same thing
// but format an argument differently ("10" vs "10.0") address different
// entries. An argument containing the joiner sequence can likewise collide
// with a differently-split call. Both are accepted limitations; changing the
// scheme would orphan every entry already stored under the old keys.
func DeriveKey(name string, args ...string) string {
	name = strings.ReplaceAll(strings.ToLower(name), " ", "_")
	return keyPrefix + name + "-" + strings.Join(args, argJoiner)
}
