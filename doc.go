// Package fheproxy provides the resilience and scaling core for a
// homomorphic-encryption LLM proxy: ciphertext caching, circuit breaking
// around a pool of FHE engines, and an auto scaler that grows and shrinks
// the pool under load.
//
// # Architecture
//
// The proxy package composes four independent primitives behind one facade:
//
//	┌─────────────────────────────────────┐
//	│            Proxy                    │  Encrypt / Decrypt facade
//	│  (control loops, batch workers)     │  Lifecycle management
//	└─────────────────────────────────────┘
//	           ↓ routes through
//	┌─────────────────────────────────────┐
//	│        Circuit Breaker              │  Closed / Open / HalfOpen,
//	│        (pkg/breaker)                │  rejects during outages
//	└─────────────────────────────────────┘
//	           ↓ dispatches to
//	┌─────────────────────────────────────┐
//	│        Engine Pool (pool)           │  Round-robin over N engines,
//	│                                     │  bounded in-flight operations
//	└─────────────────────────────────────┘
//	           ↑ resized by
//	┌─────────────────────────────────────┐
//	│        Auto Scaler (scaler)         │  CPU and queue signals,
//	│                                     │  cooldown and replica bounds
//	└─────────────────────────────────────┘
//
// Encrypted results are written back to a TTL+LRU ciphertext cache
// (pkg/cache) keyed by ciphertext id, so repeated lookups skip the engines
// entirely. Plaintexts are never cached.
//
// # Packages
//
// Core:
//   - engine: FHE engine interface, parameters and the in-process AES-GCM
//     stand-in implementation
//   - pool: fixed-size engine pool with round-robin dispatch, concurrency
//     limiting and live resizing
//   - scaler: threshold-based scaling decisions with cooldown enforcement
//   - proxy: the composed facade with scaling controller, health sweep and
//     batch worker path
//
// Infrastructure:
//   - config: configuration loading (JSON and YAML) and validation
//   - errors: classified errors (transient, invalid, fatal) with retry hints
//   - metric: Prometheus metrics registry and HTTP endpoint
//   - health: component health statuses and aggregation
//
// Utilities:
//   - pkg/cache: generic cache with LRU, TTL and hybrid strategies
//   - pkg/breaker: three-state circuit breaker
//   - pkg/retry: retry policies with exponential backoff
//   - pkg/worker: bounded worker pools
//
// # Binary
//
// Build and run the daemon:
//
//	go build -o bin/fheproxy ./cmd/fheproxy
//	./bin/fheproxy --config configs/example.yaml
//
// The daemon exposes Prometheus metrics on the configured port and shuts
// down gracefully on SIGINT/SIGTERM.
package fheproxy
