// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"sort"
	"strings"
)

// sortKey is one parsed field of a --sort spec.
type sortKey struct {
	key           string
	descending    bool
	caseSensitive bool
}

// SortDataset sorts the result set in place according to spec, a comma
// separated list of output keys.  A - prefix sorts that key descending and a
// ! prefix makes the comparison case sensitive.  Numeric values compare
// numerically, everything else as strings.  An empty spec leaves the dataset
// in its incoming order.
func SortDataset(dataset []map[string]interface{}, spec string) {
	if spec == "" {
		return
	}

	//nolint:prealloc
	var keys []sortKey
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)

		sk := sortKey{}
		for {
			if strings.HasPrefix(field, "-") {
				sk.descending = true
				field = field[1:]
				continue
			}
			if strings.HasPrefix(field, "!") {
				sk.caseSensitive = true
				field = field[1:]
				continue
			}
			break
		}

		if field == "" {
			continue
		}
		sk.key = field
		keys = append(keys, sk)
	}

	if len(keys) == 0 {
		return
	}

	sort.SliceStable(dataset, func(i, j int) bool {
		for _, sk := range keys {
			c := compareValues(dataset[i][sk.key], dataset[j][sk.key], sk.caseSensitive)
			if c == 0 {
				continue
			}
			if sk.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues returns -1, 0 or 1.  Two numeric values compare numerically,
// everything else falls back to string comparison.
func compareValues(a, b interface{}, caseSensitive bool) int {
	av, aok := toFloat64(a)
	bv, bok := toFloat64(b)
	if aok && bok {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}

	as := InterfaceToString(a)
	bs := InterfaceToString(b)
	if !caseSensitive {
		as = strings.ToLower(as)
		bs = strings.ToLower(bs)
	}
	return strings.Compare(as, bs)
}
