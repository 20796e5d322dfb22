// Package engine defines the encryption engine contract consumed by the
// connection pool, together with an in-process reference implementation.
//
// An Engine performs encrypt/decrypt operations for clients identified by
// owner id. Engines are built from a Factory so the pool can create N
// instances sharing parameters, with owner keys reachable from any instance.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

// Params describes the encryption parameters shared by all engines in a pool.
type Params struct {
	// PolyModulusDegree is the polynomial modulus degree; must be a power of two.
	PolyModulusDegree int `json:"poly_modulus_degree" yaml:"poly_modulus_degree"`

	// CoeffModulusBits is the coefficient modulus bit sizes.
	CoeffModulusBits []int `json:"coeff_modulus_bits" yaml:"coeff_modulus_bits"`

	// ScaleBits is the encoding scale in bits.
	ScaleBits int `json:"scale_bits" yaml:"scale_bits"`

	// SecurityLevel is the security level in bits (128, 192 or 256).
	SecurityLevel int `json:"security_level" yaml:"security_level"`
}

// DefaultParams returns production-grade default parameters.
func DefaultParams() Params {
	return Params{
		PolyModulusDegree: 16384,
		CoeffModulusBits:  []int{60, 40, 40, 60},
		ScaleBits:         40,
		SecurityLevel:     128,
	}
}

// Validate checks if the parameters are valid.
func (p Params) Validate() error {
	if p.PolyModulusDegree < 1024 || p.PolyModulusDegree&(p.PolyModulusDegree-1) != 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			fmt.Sprintf("poly_modulus_degree must be a power of two >= 1024, got %d", p.PolyModulusDegree))
	}
	switch p.SecurityLevel {
	case 128, 192, 256:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			fmt.Sprintf("security_level must be 128, 192 or 256, got %d", p.SecurityLevel))
	}
	if p.ScaleBits <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "engine", "Validate",
			fmt.Sprintf("scale_bits must be positive, got %d", p.ScaleBits))
	}
	return nil
}

// Ciphertext is an encrypted payload produced by an Engine.
type Ciphertext struct {
	// ID uniquely identifies this ciphertext.
	ID uuid.UUID `json:"id"`

	// Data is the opaque encrypted payload.
	Data []byte `json:"data"`

	// Params echoes the parameters the ciphertext was produced under.
	Params Params `json:"params"`

	// NoiseBudget is the remaining noise budget in bits; zero means unknown.
	NoiseBudget uint64 `json:"noise_budget,omitempty"`
}

// CacheKey returns the cache key for this ciphertext.
func (c *Ciphertext) CacheKey() string {
	return c.ID.String()
}

// Engine performs encryption operations for owners identified by uuid.
// Implementations need not be safe for concurrent use; the pool serializes
// calls per engine instance.
type Engine interface {
	// ID returns the engine's index within its pool.
	ID() int

	// Encrypt encrypts plaintext under the owner's key material.
	Encrypt(ctx context.Context, ownerID uuid.UUID, plaintext []byte) (*Ciphertext, error)

	// Decrypt recovers the plaintext of a ciphertext owned by ownerID.
	Decrypt(ctx context.Context, ownerID uuid.UUID, ct *Ciphertext) ([]byte, error)

	// Ping reports whether the engine is healthy.
	Ping(ctx context.Context) error
}

// Factory builds the engine with the given pool index. Instances from one
// factory must serve the same owners interchangeably so a pool can balance
// requests across them.
type Factory func(id int) (Engine, error)
