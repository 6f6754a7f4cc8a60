package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = PolicyMinLength
	algorithmID           = "argon2id"

	// DefaultMaxPasswordBytes bounds hashing cost when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooShort is returned by Hash for inputs below the policy minimum.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned by Hash and Verify for inputs above MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidHash is returned when an encoded hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used by the development credential API.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

// Validate checks the cost parameters against the accepted minimums.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Memory, validation.Required, validation.Min(minMemoryKB)),
		validation.Field(&c.Time, validation.Required, validation.Min(minTimeCost)),
		validation.Field(&c.Parallelism, validation.Required, validation.Min(minParallelism)),
		validation.Field(&c.SaltLength, validation.Required, validation.Min(minSaltLength)),
		validation.Field(&c.KeyLength, validation.Required, validation.Min(minKeyLength)),
		validation.Field(&c.MaxPasswordBytes, validation.Min(0)),
	)
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$hash string.
type phc struct {
	params params
	salt   []byte
	hash   []byte
}

type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.params.memory, p.params.time, p.params.parallelism,
		phcEncoding.EncodeToString(p.salt),
		phcEncoding.EncodeToString(p.hash),
	)
}

// PHC strings carry unpadded base64; padded input is still accepted.
var phcEncoding = base64.RawStdEncoding

func decodeB64(s string) ([]byte, error) {
	return phcEncoding.DecodeString(strings.TrimRight(s, "="))
}

func (a *Argon2) derive(password string, salt []byte, p params, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.parallelism, keyLen)
}

func (a *Argon2) costs() params {
	return params{memory: a.config.Memory, time: a.config.Time, parallelism: a.config.Parallelism}
}

// Hash returns the PHC encoding of password under a fresh random salt. Length
// checks count raw bytes without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	switch {
	case len(password) < minPassBytes:
		return "", ErrPasswordTooShort
	case len(password) > a.config.MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	p := a.costs()
	return phc{params: p, salt: salt, hash: a.derive(password, salt, p, a.config.KeyLength)}.String(), nil
}

// Verify reports whether password matches encodedHash in constant time.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	decoded, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	computed := a.derive(password, decoded.salt, decoded.params, uint32(len(decoded.hash)))
	return subtle.ConstantTimeCompare(computed, decoded.hash) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the hasher's, or with a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	decoded, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	current := a.costs()
	return current.memory > decoded.params.memory ||
		current.time > decoded.params.time ||
		current.parallelism > decoded.params.parallelism ||
		a.config.KeyLength != uint32(len(decoded.hash)), nil
}

func invalidHash(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidHash, reason)
}

func parsePHC(encodedHash string) (phc, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phc{}, invalidHash("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return phc{}, invalidHash("unsupported algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return phc{}, invalidHash("missing argon2 version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phc{}, invalidHash("unsupported argon2 version")
	}

	p, err := parseParams(parts[3])
	if err != nil {
		return phc{}, err
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return phc{}, invalidHash("invalid salt")
	}
	hash, err := decodeB64(parts[5])
	if err != nil || len(hash) == 0 {
		return phc{}, invalidHash("invalid hash")
	}

	return phc{params: p, salt: salt, hash: hash}, nil
}

// parseParams reads "m=..,t=..,p=.." where every key appears exactly once.
func parseParams(part string) (params, error) {
	var (
		p    params
		seen = map[string]bool{}
	)

	for _, pair := range strings.Split(part, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || seen[key] {
			return params{}, invalidHash("invalid parameter entry")
		}
		seen[key] = true

		bits, floor := 32, uint64(0)
		switch key {
		case "m":
			floor = uint64(minMemoryKB)
		case "t":
			floor = uint64(minTimeCost)
		case "p":
			bits, floor = 8, uint64(minParallelism)
		default:
			return params{}, invalidHash("unsupported parameter " + key)
		}

		v, err := strconv.ParseUint(value, 10, bits)
		if err != nil || v < floor {
			return params{}, invalidHash("invalid " + key + " parameter")
		}
		switch key {
		case "m":
			p.memory = uint32(v)
		case "t":
			p.time = uint32(v)
		case "p":
			p.parallelism = uint8(v)
		}
	}

	if len(seen) != 3 {
		return params{}, invalidHash("missing parameters")
	}
	return p, nil
}
