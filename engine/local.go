package engine

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

// keyStore holds per-owner AEAD key material, generated lazily on first use.
// Engines built from one factory share a store so any of them can serve a
// given owner; separately constructed engines hold independent stores.
type keyStore struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]cipher.AEAD
}

func newKeyStore() *keyStore {
	return &keyStore{keys: make(map[uuid.UUID]cipher.AEAD)}
}

// ownerAEAD returns the AEAD for ownerID, generating a fresh key on first use.
func (s *keyStore) ownerAEAD(ownerID uuid.UUID) (cipher.AEAD, error) {
	s.mu.RLock()
	aead, ok := s.keys[ownerID]
	s.mu.RUnlock()
	if ok {
		return aead, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if aead, ok := s.keys[ownerID]; ok {
		return aead, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.WrapTransient(err, "keyStore", "ownerAEAD", "key generation")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WrapFatal(err, "keyStore", "ownerAEAD", "cipher init")
	}
	aead, err = cipher.NewGCM(block)
	if err != nil {
		return nil, errors.WrapFatal(err, "keyStore", "ownerAEAD", "gcm init")
	}
	s.keys[ownerID] = aead
	return aead, nil
}

// localEngine is an in-process Engine backed by per-owner AES-256-GCM keys.
// It stands in for a real FHE engine so the pool, proxy and tests have a
// working collaborator with realistic owner-key scoping.
type localEngine struct {
	id     int
	params Params
	keys   *keyStore
}

// NewLocal creates an in-process engine with the given pool index and params.
// The engine holds its own key material.
func NewLocal(id int, params Params) (Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "engine", "NewLocal", "params validation")
	}
	return &localEngine{
		id:     id,
		params: params,
		keys:   newKeyStore(),
	}, nil
}

// NewLocalFactory returns a Factory producing engines that share params and
// owner key material, so a pool balancing across them can decrypt on any
// instance.
func NewLocalFactory(params Params) Factory {
	store := newKeyStore()
	return func(id int) (Engine, error) {
		if err := params.Validate(); err != nil {
			return nil, errors.WrapInvalid(err, "engine", "NewLocalFactory", "params validation")
		}
		return &localEngine{
			id:     id,
			params: params,
			keys:   store,
		}, nil
	}
}

func (e *localEngine) ID() int {
	return e.id
}

func (e *localEngine) Encrypt(ctx context.Context, ownerID uuid.UUID, plaintext []byte) (*Ciphertext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(plaintext) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "localEngine", "Encrypt",
			"empty plaintext")
	}

	aead, err := e.keys.ownerAEAD(ownerID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.WrapTransient(err, "localEngine", "Encrypt", "nonce generation")
	}

	sealed := aead.Seal(nonce, nonce, plaintext, ownerID[:])
	return &Ciphertext{
		ID:          uuid.New(),
		Data:        sealed,
		Params:      e.params,
		NoiseBudget: e.initialNoiseBudget(),
	}, nil
}

func (e *localEngine) Decrypt(ctx context.Context, ownerID uuid.UUID, ct *Ciphertext) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ct == nil || len(ct.Data) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "localEngine", "Decrypt",
			"empty ciphertext")
	}

	aead, err := e.keys.ownerAEAD(ownerID)
	if err != nil {
		return nil, err
	}

	if len(ct.Data) < aead.NonceSize() {
		return nil, errors.WrapInvalid(errors.ErrDataCorrupted, "localEngine", "Decrypt",
			"ciphertext shorter than nonce")
	}
	nonce, sealed := ct.Data[:aead.NonceSize()], ct.Data[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, ownerID[:])
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrDataCorrupted, "localEngine", "Decrypt",
			"authentication failed")
	}
	return plaintext, nil
}

func (e *localEngine) Ping(ctx context.Context) error {
	return ctx.Err()
}

// initialNoiseBudget derives the budget a freshly encrypted ciphertext reports.
func (e *localEngine) initialNoiseBudget() uint64 {
	total := 0
	for _, bits := range e.params.CoeffModulusBits {
		total += bits
	}
	if total <= e.params.ScaleBits {
		return 0
	}
	return uint64(total - e.params.ScaleBits)
}
