// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package seal wraps cache documents in a passphrase-derived encryption
// envelope. A sealed document that fails to open is a hard error, never a
// candidate for self-healing, because the content is recoverable with the
// right passphrase.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"
)

const (
	kdfName    = "pbkdf2-sha256"
	kdfIter    = 600_000
	keyBytes   = 32
	saltBytes  = 16
	nonceBytes = 12
)

var (
	ErrNotSealed     = errors.New("document is not sealed")
	ErrNoPassphrase  = errors.New("no passphrase")
	ErrOpenFailed    = errors.New("failed to open sealed document")
	ErrBadEnvelope   = errors.New("malformed seal envelope")
	ErrUnknownScheme = errors.New("unknown seal scheme")
)

// envelope is the on-disk form of a sealed document.
type envelope struct {
	Sealed bool   `json:"sealed"`
	KDF    string `json:"kdf"`
	Iter   int    `json:"iter"`
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	Data   []byte `json:"data"`
}

type Sealer struct {
	passphrase []byte
}

func New(passphrase string) *Sealer {
	return &Sealer{passphrase: []byte(passphrase)}
}

// Seal envelopes plain under the sealer's passphrase. Every call derives a
// fresh salt and nonce.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	if len(s.passphrase) == 0 {
		return nil, ErrNoPassphrase
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.cipher(salt, kdfIter)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	env := envelope{
		Sealed: true,
		KDF:    kdfName,
		Iter:   kdfIter,
		Salt:   salt,
		Nonce:  nonce,
		Data:   gcm.Seal(nil, nonce, plain, nil),
	}

	return json.Marshal(env)
}

// Open recovers the plain document from a sealed envelope. A wrong
// passphrase or tampered content comes back as ErrOpenFailed.
func (s *Sealer) Open(raw []byte) ([]byte, error) {
	if len(s.passphrase) == 0 {
		return nil, ErrNoPassphrase
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || !env.Sealed {
		return nil, ErrNotSealed
	}
	if env.KDF != kdfName {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, env.KDF)
	}
	if len(env.Salt) == 0 || len(env.Nonce) != nonceBytes {
		return nil, ErrBadEnvelope
	}

	gcm, err := s.cipher(env.Salt, env.Iter)
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, env.Nonce, env.Data, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plain, nil
}

func (s *Sealer) cipher(salt []byte, iter int) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, iter, keyBytes, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}

	return cipher.NewGCM(block)
}

// IsSealed reports whether raw looks like a seal envelope.
func IsSealed(raw []byte) bool {
	var env envelope
	return json.Unmarshal(raw, &env) == nil && env.Sealed
}

// ReadPassphrase resolves the passphrase from the environment, falling back
// to an interactive prompt when stdin is a terminal.
func ReadPassphrase() (string, error) {
	if p := os.Getenv("RUNCACHE_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoPassphrase
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return "", ErrNoPassphrase
	}

	return string(raw), nil
}
