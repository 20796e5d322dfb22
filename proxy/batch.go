package proxy

import (
	"context"

	"github.com/google/uuid"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/engine"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

// BatchKind is the operation a batch request performs.
type BatchKind int

const (
	// BatchEncrypt encrypts Plaintext for OwnerID.
	BatchEncrypt BatchKind = iota
	// BatchDecrypt decrypts Ciphertext for OwnerID.
	BatchDecrypt
)

// BatchRequest is one queued operation. Done, if set, receives the result
// on a worker goroutine once the operation finishes.
type BatchRequest struct {
	ID         uuid.UUID
	Kind       BatchKind
	OwnerID    uuid.UUID
	Plaintext  []byte
	Ciphertext *engine.Ciphertext
	Done       func(BatchResult)
}

// BatchResult is the outcome of one batch request.
type BatchResult struct {
	ID         uuid.UUID
	Ciphertext *engine.Ciphertext
	Plaintext  []byte
	Err        error
}

// SubmitBatch queues a request on the batch worker pool. It never blocks:
// when the queue is full the request is rejected immediately.
func (p *Proxy) SubmitBatch(req BatchRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if err := p.batch.Submit(req); err != nil {
		return errors.WrapTransient(err, "Proxy", "SubmitBatch", "queue")
	}
	return nil
}

// processBatch executes one queued request on a batch worker.
func (p *Proxy) processBatch(ctx context.Context, req BatchRequest) error {
	result := BatchResult{ID: req.ID}

	switch req.Kind {
	case BatchEncrypt:
		result.Ciphertext, result.Err = p.Encrypt(ctx, req.OwnerID, req.Plaintext)
	case BatchDecrypt:
		result.Plaintext, result.Err = p.Decrypt(ctx, req.OwnerID, req.Ciphertext)
	default:
		result.Err = errors.WrapInvalid(errors.ErrInvalidData, "Proxy", "processBatch",
			"unknown batch kind")
	}

	if req.Done != nil {
		req.Done(result)
	}
	return result.Err
}
