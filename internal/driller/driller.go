// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package driller

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Driller resolves path against doc and returns the matching value.  It
// extends gjson's dotted-path syntax with explicit [i] indexes and with
// transparent single-element arrays: a lone element is drilled through
// unless the path indexes it explicitly.  Multi-element arrays are
// returned whole.  Missing keys and out-of-range indexes yield a
// non-existent result.
func Driller(doc string, path string) gjson.Result {
	result := gjson.Parse(doc)

	// Normalize items[1].id into gjson's items.1.id form.
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		if result.IsArray() && !isIndex(seg) {
			if arr := result.Array(); len(arr) == 1 {
				result = arr[0]
			}
		}
		result = result.Get(seg)
		if !result.Exists() {
			return result
		}
	}

	if result.IsArray() {
		if arr := result.Array(); len(arr) == 1 {
			result = arr[0]
		}
	}

	return result
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
