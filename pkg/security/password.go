// Package security holds the argon2id verifier for the back-office password.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/asarum-backend/pkg/config"
)

// ErrInvalidHash means a stored value looked like argon2id but did not parse.
var ErrInvalidHash = errors.New("invalid argon2id hash")

const hashPrefix = "$argon2id$"

var b64 = base64.RawStdEncoding

// Credential verifies submitted passwords against one configured secret.
type Credential struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// HashPassword derives a PHC-formatted argon2id string for password.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	c, err := derive(password, cfg)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ParseCredential accepts an argon2id string as is and hashes anything else,
// so a plain configured password is never compared directly.
func ParseCredential(stored string, cfg config.PasswordConfig) (*Credential, error) {
	if !strings.HasPrefix(stored, hashPrefix) {
		return derive(stored, cfg)
	}
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrInvalidHash
	}
	c := &Credential{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &c.memory, &c.time, &c.threads); err != nil {
		return nil, ErrInvalidHash
	}
	var err error
	if c.salt, err = b64.DecodeString(parts[4]); err != nil || len(c.salt) == 0 {
		return nil, ErrInvalidHash
	}
	if c.key, err = b64.DecodeString(parts[5]); err != nil || len(c.key) == 0 {
		return nil, ErrInvalidHash
	}
	if c.memory == 0 || c.time == 0 || c.threads == 0 {
		return nil, ErrInvalidHash
	}
	return c, nil
}

// Matches runs in time independent of where password and secret differ.
func (c *Credential) Matches(password string) bool {
	if c == nil || password == "" {
		return false
	}
	got := argon2.IDKey([]byte(password), c.salt, c.time, c.memory, c.threads, uint32(len(c.key)))
	return subtle.ConstantTimeCompare(got, c.key) == 1
}

func (c *Credential) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", hashPrefix, argon2.Version,
		c.memory, c.time, c.threads, b64.EncodeToString(c.salt), b64.EncodeToString(c.key))
}

func derive(password string, cfg config.PasswordConfig) (*Credential, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	c := &Credential{
		memory:  bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		time:    bounded(cfg.ArgonTime, 1, 10),
		threads: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		salt:    make([]byte, bounded(cfg.ArgonSaltLen, 8, 64)),
	}
	if _, err := rand.Read(c.salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	c.key = argon2.IDKey([]byte(password), c.salt, c.time, c.memory, c.threads, bounded(cfg.ArgonKeyLen, 16, 64))
	return c, nil
}

func bounded(v, lo, hi int) uint32 {
	return uint32(min(max(v, lo), hi))
}
