// Package keys implements the identity collaborator: ed25519 key pairs,
// signing and signature verification.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alekseysidorov/exonum-harness/types"
)

// Sizes of ed25519 keys and signatures.
const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
	SeedSize      = ed25519.SeedSize
)

// PublicKey is an ed25519 public key identifying a transaction author.
type PublicKey [PublicKeySize]byte

// KeyPair holds an ed25519 key pair.
type KeyPair struct {
	Public  PublicKey
	Private ed25519.PrivateKey
}

// Generate creates a new random key pair.
func Generate() (KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generating key: %w", err)
	}
	return fromPrivate(priv), nil
}

// MustGenerate is like Generate but panics on failure. Intended for tests.
func MustGenerate() KeyPair {
	kp, err := Generate()
	if err != nil {
		panic(err)
	}
	return kp
}

// FromSeed derives a key pair deterministically from a 32-byte seed.
func FromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != SeedSize {
		return KeyPair{}, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	return fromPrivate(ed25519.NewKeyFromSeed(seed)), nil
}

// FromPassphrase derives a key pair whose seed is the SHA-256 digest of phrase.
func FromPassphrase(phrase string) KeyPair {
	seed := sha256.Sum256([]byte(phrase))
	kp, _ := FromSeed(seed[:])
	return kp
}

func fromPrivate(priv ed25519.PrivateKey) KeyPair {
	var pub PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return KeyPair{Public: pub, Private: priv}
}

// Sign signs msg with the pair's private key.
func (kp KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.Private, msg)
}

// Verify reports whether sig is a valid signature of msg by pub.
func Verify(pub PublicKey, msg, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(pub[:], msg, sig)
}

// String returns the public key as hex.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	return append([]byte(nil), pk[:]...)
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// ParsePublicKey decodes a hex-encoded public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("decoding public key: %w", err)
	}
	if len(b) != PublicKeySize {
		return pk, types.WrapValidationError(types.ErrInvalidPublicKey, "public key length")
	}
	copy(pk[:], b)
	return pk, nil
}

// PublicKeyFromBytes copies raw key bytes into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, types.ErrInvalidPublicKey
	}
	copy(pk[:], b)
	return pk, nil
}

// KeyFile is the on-disk JSON representation of a key pair.
type KeyFile struct {
	PrivKey string `json:"priv_key"`
	PubKey  string `json:"pub_key"`
}

// Save writes the key pair to path as JSON with owner-only permissions.
func (kp KeyPair) Save(path string) error {
	data, err := json.MarshalIndent(KeyFile{
		PrivKey: hex.EncodeToString(kp.Private),
		PubKey:  kp.Public.String(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling key: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// Load reads a key pair previously written by Save.
func Load(path string) (KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeyPair{}, fmt.Errorf("reading key file: %w", err)
	}

	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return KeyPair{}, fmt.Errorf("parsing key file: %w", err)
	}

	priv, err := hex.DecodeString(kf.PrivKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("decoding private key: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return KeyPair{}, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}

	kp := fromPrivate(ed25519.PrivateKey(priv))
	if kf.PubKey != "" && kf.PubKey != kp.Public.String() {
		return KeyPair{}, fmt.Errorf("public key does not match private key")
	}
	return kp, nil
}
