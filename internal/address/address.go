// Package address translates between human-readable addresses and their
// canonical byte form.
//
// Human form is bech32 with the codec's prefix as the human-readable part,
// so a mistyped address fails its checksum instead of naming someone else.
// Canonical form is what gets stored and compared; the human form is only
// ever produced at the query boundary.
package address

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmos/btcutil/bech32"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidAddress is matched by every canonicalization failure.
var ErrInvalidAddress = errors.New("invalid address")

// Canonical is the storage form of an address.
type Canonical []byte

// Equal reports whether two canonical addresses are identical.
func (c Canonical) Equal(other Canonical) bool {
	return bytes.Equal(c, other)
}

// String returns the hex encoding, for logs only.
func (c Canonical) String() string {
	return hex.EncodeToString(c)
}

// API is the address translator capability handed to programs.
type API interface {
	Canonicalize(human string) (Canonical, error)
	Humanize(c Canonical) (string, error)
}

// Error describes why an input could not be canonicalized.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidAddress) hold for every *Error.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidAddress
}

// Length bounds for canonical addresses, in bytes.
const (
	MinLength = 4
	MaxLength = 64
)

// Codec implements API for a single human-readable prefix.
type Codec struct {
	prefix string
}

// NewCodec creates a codec for prefix. The prefix must be non-empty lowercase
// ASCII letters and must not contain the separator '1'.
func NewCodec(prefix string) (*Codec, error) {
	if prefix == "" {
		return nil, fmt.Errorf("address prefix is required")
	}
	for _, r := range prefix {
		if r < 'a' || r > 'z' {
			return nil, fmt.Errorf("address prefix %q must be lowercase ASCII letters", prefix)
		}
	}
	return &Codec{prefix: prefix}, nil
}

// MustCodec is like NewCodec but panics on error.
func MustCodec(prefix string) *Codec {
	c, err := NewCodec(prefix)
	if err != nil {
		panic(err)
	}
	return c
}

// Prefix returns the human-readable prefix.
func (c *Codec) Prefix() string {
	return c.prefix
}

// Canonicalize validates a human address and returns its canonical bytes.
//
// Compatibility forms (full-width characters) are folded with NFKC, and an
// all-uppercase address is accepted; mixed case is rejected.
func (c *Codec) Canonicalize(human string) (Canonical, error) {
	s := norm.NFKC.String(human)
	if s == "" {
		return nil, &Error{Input: human, Reason: "empty"}
	}

	lower := strings.ToLower(s)
	if s != lower && s != strings.ToUpper(s) {
		return nil, &Error{Input: human, Reason: "mixed case"}
	}

	head := c.prefix + "1"
	if !strings.HasPrefix(lower, head) {
		return nil, &Error{Input: human, Reason: fmt.Sprintf("expected prefix %q", head)}
	}

	hrp, data, err := bech32.DecodeNoLimit(lower)
	if err != nil {
		return nil, &Error{Input: human, Reason: err.Error()}
	}
	if hrp != c.prefix {
		return nil, &Error{Input: human, Reason: fmt.Sprintf("expected prefix %q", head)}
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, &Error{Input: human, Reason: err.Error()}
	}
	if len(raw) < MinLength || len(raw) > MaxLength {
		return nil, &Error{Input: human, Reason: fmt.Sprintf("length %d out of range [%d, %d]", len(raw), MinLength, MaxLength)}
	}

	return Canonical(raw), nil
}

// Humanize renders canonical bytes in the human form.
func (c *Codec) Humanize(canon Canonical) (string, error) {
	if len(canon) < MinLength || len(canon) > MaxLength {
		return "", fmt.Errorf("humanize: canonical length %d out of range [%d, %d]", len(canon), MinLength, MaxLength)
	}
	return bech32.EncodeFromBase256(c.prefix, canon)
}

// MustHumanize is like Humanize but panics on error.
// Use only in tests or with bytes produced by the host.
func (c *Codec) MustHumanize(canon Canonical) string {
	h, err := c.Humanize(canon)
	if err != nil {
		panic(err)
	}
	return h
}

// Account derives a stable account address from a name. Local tooling uses
// it so "alice" means the same address on every run.
func (c *Codec) Account(name string) string {
	sum := sha256.Sum256([]byte("account/" + name))
	return c.MustHumanize(Canonical(sum[:20]))
}
