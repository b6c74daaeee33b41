// Package chains reconstructs certificate issuance chains from a leaf
// certificate and a pool of candidate issuers. Resolution links issuer DN
// to subject DN by exact string comparison; no signature verification is
// performed here, since actual trust decisions are made by a downstream
// validator over the returned chain.
package chains

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds the number of issuer-lookup iterations.
const DefaultMaxDepth = 10

// Common errors
var (
	ErrNoSignerCertificates = errors.New("signerPEMs must contain at least one certificate")
	ErrInvalidLeaf          = errors.New("invalid leaf certificate")
)

// Chain is an ordered certificate list: index 0 is the leaf, increasing
// index moves toward the root. A chain may end before a self-signed root
// when the pool has a gap or the depth bound is reached.
type Chain []*x509.Certificate

// Leaf returns the end-entity certificate.
func (c Chain) Leaf() *x509.Certificate {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Complete reports whether the chain terminates at a self-signed root.
func (c Chain) Complete() bool {
	if len(c) == 0 {
		return false
	}
	last := c[len(c)-1]
	return last.Subject.String() == last.Issuer.String()
}

// Resolve builds the issuance chain for the first certificate in
// signerPEMs. The remaining signer certificates are consulted before the
// pool during issuer lookup. A maxDepth of zero uses DefaultMaxDepth.
//
// The first pool candidate whose subject DN string equals the current
// certificate's issuer DN string wins; a visited-subject set guards
// against issuer cycles. The returned chain may be incomplete when no
// issuer is found or the depth bound is exhausted.
func Resolve(signerPEMs []string, pool []*x509.Certificate, maxDepth int) (Chain, error) {
	if len(signerPEMs) == 0 {
		return nil, ErrNoSignerCertificates
	}
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}

	leaf, err := parsePEMCertificate(signerPEMs[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLeaf, err)
	}

	// Extra signer certificates are search candidates ahead of the pool.
	// Ones that fail to parse are skipped, matching the pool loader's
	// leniency.
	candidates := make([]*x509.Certificate, 0, len(signerPEMs)-1+len(pool))
	for _, pemData := range signerPEMs[1:] {
		cert, err := parsePEMCertificate(pemData)
		if err != nil {
			continue
		}
		candidates = append(candidates, cert)
	}
	candidates = append(candidates, pool...)

	chain := Chain{leaf}
	visited := map[string]bool{leaf.Subject.String(): true}
	current := leaf

	for depth := 0; depth < maxDepth; depth++ {
		issuer := findBySubject(candidates, current.Issuer.String())
		if issuer == nil {
			break
		}
		if visited[issuer.Subject.String()] {
			break
		}

		chain = append(chain, issuer)
		visited[issuer.Subject.String()] = true

		if issuer.Subject.String() == issuer.Issuer.String() {
			break
		}
		current = issuer
	}

	return chain, nil
}

// findBySubject returns the first candidate whose subject DN string equals
// subjectDN, or nil.
func findBySubject(candidates []*x509.Certificate, subjectDN string) *x509.Certificate {
	for _, cert := range candidates {
		if cert.Subject.String() == subjectDN {
			return cert
		}
	}
	return nil
}

// parsePEMCertificate parses a single PEM-encoded certificate.
func parsePEMCertificate(pemData string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}
	return x509.ParseCertificate(block.Bytes)
}
