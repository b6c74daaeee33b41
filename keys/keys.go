// Package keys provides RSA key pair generation and utilities for loading
// certificates and private keys from PEM and DER encoded data.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
)

// Common errors
var (
	ErrNoCertFound     = errors.New("no certificate found in data")
	ErrNoKeyFound      = errors.New("no private key found in data")
	ErrInvalidPEMBlock = errors.New("invalid PEM block")
	ErrKeyTooSmall     = errors.New("key size below minimum")
)

// MinKeyBits is the smallest RSA modulus size accepted for key generation.
const MinKeyBits = 1024

// DefaultKeyBits is the RSA modulus size used when none is specified.
const DefaultKeyBits = 2048

// KeyPair holds an RSA key pair. The private key is owned by the holder of
// the KeyPair; callers pass KeyPair values by reference and never copy the
// underlying key material.
type KeyPair struct {
	PrivateKey *rsa.PrivateKey
}

// Public returns the public half of the key pair.
func (kp *KeyPair) Public() *rsa.PublicKey {
	return &kp.PrivateKey.PublicKey
}

// GenerateKeyPair generates a new RSA key pair of the given size using the
// supplied randomness source. A nil random source falls back to the
// process-wide CSPRNG (crypto/rand.Reader), which is safe for concurrent
// use; callers that want deterministic keys for testing inject their own
// reader at the composition root.
func GenerateKeyPair(random io.Reader, bits int) (*KeyPair, error) {
	if random == nil {
		random = rand.Reader
	}
	if bits == 0 {
		bits = DefaultKeyBits
	}
	if bits < MinKeyBits {
		return nil, fmt.Errorf("%w: %d bits (minimum %d)", ErrKeyTooSmall, bits, MinKeyBits)
	}

	key, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return &KeyPair{PrivateKey: key}, nil
}

// LoadCertsFromPemDer loads certificates from a PEM or DER encoded file.
func LoadCertsFromPemDer(filename string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return LoadCertsFromPemDerData(data)
}

// LoadCertsFromPemDerData loads certificates from PEM or DER encoded data.
// PEM data may contain multiple concatenated CERTIFICATE blocks; each block
// is parsed independently.
func LoadCertsFromPemDerData(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	if IsPEM(data) {
		rest := data
		for len(rest) > 0 {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			if block.Type != "CERTIFICATE" {
				continue
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse certificate: %w", err)
			}
			certs = append(certs, cert)
		}
	} else {
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DER certificate: %w", err)
		}
		certs = []*x509.Certificate{cert}
	}

	if len(certs) == 0 {
		return nil, ErrNoCertFound
	}
	return certs, nil
}

// LoadPrivateKeyFromPem loads an RSA private key from a PEM encoded file.
func LoadPrivateKeyFromPem(filename string) (*KeyPair, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return LoadPrivateKeyFromPemData(data)
}

// LoadPrivateKeyFromPemData loads an RSA private key from PEM encoded data.
// PKCS#1 and PKCS#8 encodings are accepted.
func LoadPrivateKeyFromPemData(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEMBlock
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 private key: %w", err)
		}
		return &KeyPair{PrivateKey: key}, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA, got %T", ErrNoKeyFound, key)
		}
		return &KeyPair{PrivateKey: rsaKey}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrNoKeyFound, block.Type)
	}
}

// CertToPEM encodes a DER certificate as PEM, base64 wrapped at 64 columns
// and bracketed by BEGIN/END CERTIFICATE markers.
func CertToPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// KeyToPEM encodes an RSA private key as a PKCS#1 PEM block.
func KeyToPEM(kp *KeyPair) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.PrivateKey),
	})
}

// IsPEM checks if the data appears to be PEM encoded.
func IsPEM(data []byte) bool {
	return len(data) > 10 && string(data[:5]) == "-----"
}
