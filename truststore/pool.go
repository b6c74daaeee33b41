// Package truststore assembles pools of trust-anchor certificates from
// heterogeneous sources: filesystem directories, compiled-in PEM tables,
// PKCS#12 keystore files and XML trusted lists. Individual unparseable
// files never abort a load; skips are recorded per file so callers can
// observe what was left out.
package truststore

import (
	"crypto/x509"
	"sync"
)

// SkippedFile records one input that was excluded from the pool and why.
type SkippedFile struct {
	Path   string
	Reason error
}

// Pool is a set of parsed certificates gathered from multiple sources. It
// carries no ordering invariant beyond insertion order and tolerates
// duplicates; it is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	certs   []*x509.Certificate
	skipped []SkippedFile
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Add appends certificates to the pool.
func (p *Pool) Add(certs ...*x509.Certificate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.certs = append(p.certs, certs...)
}

// AddSkipped records a file that could not be loaded.
func (p *Pool) AddSkipped(path string, reason error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped = append(p.skipped, SkippedFile{Path: path, Reason: reason})
}

// Certificates returns the pooled certificates.
func (p *Pool) Certificates() []*x509.Certificate {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]*x509.Certificate, len(p.certs))
	copy(result, p.certs)
	return result
}

// Skipped returns the per-file skip diagnostics accumulated during
// loading.
func (p *Pool) Skipped() []SkippedFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]SkippedFile, len(p.skipped))
	copy(result, p.skipped)
	return result
}

// Len returns the number of certificates in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.certs)
}
