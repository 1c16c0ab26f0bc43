// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package seal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s := New("correct horse battery staple")

	sealed, err := s.Seal([]byte(`{"k":"v"}`))
	require.NoError(t, err)

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(plain))
}

func TestSeal_EnvelopeShape(t *testing.T) {
	s := New("pw")

	sealed, err := s.Seal([]byte("{}"))
	require.NoError(t, err)

	assert.True(t, gjson.GetBytes(sealed, "sealed").Bool())
	assert.Equal(t, "pbkdf2-sha256", gjson.GetBytes(sealed, "kdf").String())
	assert.NotEmpty(t, gjson.GetBytes(sealed, "salt").String())
	assert.NotEmpty(t, gjson.GetBytes(sealed, "nonce").String())
	assert.NotEmpty(t, gjson.GetBytes(sealed, "data").String())
	assert.NotContains(t, string(sealed), "{}")
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	s := New("pw")

	a, err := s.Seal([]byte("{}"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("{}"))
	require.NoError(t, err)

	assert.NotEqual(t, gjson.GetBytes(a, "salt").String(), gjson.GetBytes(b, "salt").String())
	assert.NotEqual(t, gjson.GetBytes(a, "nonce").String(), gjson.GetBytes(b, "nonce").String())
}

func TestOpen_WrongPassphrase(t *testing.T) {
	sealed, err := New("right").Seal([]byte("{}"))
	require.NoError(t, err)

	_, err = New("wrong").Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpen_Tampered(t *testing.T) {
	s := New("pw")

	sealed, err := s.Seal([]byte(`{"k":"v"}`))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(sealed, &env))
	env.Data[0] ^= 0xff
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = s.Open(tampered)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpen_NotSealed(t *testing.T) {
	_, err := New("pw").Open([]byte(`{"plain":"doc"}`))
	assert.ErrorIs(t, err, ErrNotSealed)
}

func TestEmptyPassphrase(t *testing.T) {
	s := New("")

	_, err := s.Seal([]byte("{}"))
	assert.ErrorIs(t, err, ErrNoPassphrase)

	_, err = s.Open([]byte(`{"sealed":true}`))
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestIsSealed(t *testing.T) {
	sealed, err := New("pw").Seal([]byte("{}"))
	require.NoError(t, err)

	assert.True(t, IsSealed(sealed))
	assert.False(t, IsSealed([]byte("{}")))
	assert.False(t, IsSealed([]byte(`{"sealed":false}`)))
	assert.False(t, IsSealed([]byte("garbage")))
}
