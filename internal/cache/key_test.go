// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name string
		op   string
		args []string
		want string
	}{
		{
			name: "lowercases and underscores the operation",
			op:   "Get Widget Count",
			args: []string{"eu", "prod"},
			want: "kw-get_widget_count-eu::prod",
		},
		{
			name: "no args",
			op:   "Ping",
			args: nil,
			want: "kw-ping-",
		},
		{
			name: "single arg",
			op:   "lookup",
			args: []string{"alpha"},
			want: "kw-lookup-alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveKey(tt.op, tt.args...))
		})
	}
}

// The joiner is not escaped, so an argument containing it lands on the same
// key as the split form. Documented behavior, not a bug.
func TestDeriveKey_JoinerCollision(t *testing.T) {
	assert.Equal(t, DeriveKey("op", "a::b"), DeriveKey("op", "a", "b"))
}
