package truststore

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	"software.sslmate.com/src/go-pkcs12"
)

// Common provider errors
var (
	ErrNoTrustedRoots = errors.New("no trusted root certificates found")
)

// Provider supplies trust anchors from some backing source. Implementations
// exist for compiled-in PEM tables, PKCS#12 keystore files and XML trusted
// lists; all are mergeable pool contributors to the loader.
type Provider interface {
	// TrustedRootDERs returns the DER encodings of the provider's trusted
	// root certificates.
	TrustedRootDERs() ([][]byte, error)
}

// StaticProvider serves trust anchors decoded from a compiled-in PEM
// bundle, such as an embedded national trust-store constant table.
type StaticProvider struct {
	name      string
	pemBundle []byte
}

// NewStaticProvider creates a provider over an embedded PEM bundle. The
// name is used in error messages only.
func NewStaticProvider(name string, pemBundle []byte) *StaticProvider {
	return &StaticProvider{name: name, pemBundle: pemBundle}
}

// TrustedRootDERs decodes every CERTIFICATE block in the bundle.
func (p *StaticProvider) TrustedRootDERs() ([][]byte, error) {
	var ders [][]byte
	rest := p.pemBundle
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		ders = append(ders, block.Bytes)
	}
	if len(ders) == 0 {
		return nil, fmt.Errorf("%w in embedded store %q", ErrNoTrustedRoots, p.name)
	}
	return ders, nil
}

// KeystoreProvider serves trust anchors from a PKCS#12 trust-store file at
// a fixed path, decrypted with a fixed password. A missing or undecodable
// keystore is a fatal, descriptive failure: the file is expected to exist.
type KeystoreProvider struct {
	path     string
	password string
}

// NewKeystoreProvider creates a provider for a PKCS#12 keystore file.
func NewKeystoreProvider(path, password string) *KeystoreProvider {
	return &KeystoreProvider{path: path, password: password}
}

// TrustedRootDERs reads and decrypts the keystore and returns the DER of
// every certificate entry.
func (p *KeystoreProvider) TrustedRootDERs() ([][]byte, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("trust keystore %s is not readable: %w", p.path, err)
	}

	certs, err := pkcs12.DecodeTrustStore(data, p.password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trust keystore %s: %w", p.path, err)
	}

	ders := make([][]byte, 0, len(certs))
	for _, cert := range certs {
		ders = append(ders, cert.Raw)
	}
	if len(ders) == 0 {
		return nil, fmt.Errorf("%w in keystore %s", ErrNoTrustedRoots, p.path)
	}
	return ders, nil
}

// TrustListProvider serves trust anchors from an ETSI-style XML trusted
// list: every X509Certificate element's text is base64 DER.
type TrustListProvider struct {
	path string
}

// NewTrustListProvider creates a provider for an XML trusted-list file.
func NewTrustListProvider(path string) *TrustListProvider {
	return &TrustListProvider{path: path}
}

// TrustedRootDERs parses the trusted list and decodes every embedded
// certificate. Certificate elements that fail base64 decoding or DER
// parsing are skipped, consistent with the loader's per-entry leniency.
func (p *TrustListProvider) TrustedRootDERs() ([][]byte, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("trusted list %s is not readable: %w", p.path, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse trusted list %s: %w", p.path, err)
	}

	var ders [][]byte
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if e.Tag == "X509Certificate" {
			raw := strings.Join(strings.Fields(e.Text()), "")
			der, err := base64.StdEncoding.DecodeString(raw)
			if err == nil {
				if _, err := x509.ParseCertificate(der); err == nil {
					ders = append(ders, der)
				}
			}
		}
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}

	if len(ders) == 0 {
		return nil, fmt.Errorf("%w in trusted list %s", ErrNoTrustedRoots, p.path)
	}
	return ders, nil
}

// DirProvider adapts a directory scan to the Provider capability, so
// filesystem trust sources compose with the other providers.
type DirProvider struct {
	dirs           []string
	maxParentDepth int
}

// NewDirProvider creates a provider that scans the given directories,
// probing up to maxParentDepth ancestor directories for relative paths
// that do not resolve from the working directory.
func NewDirProvider(dirs []string, maxParentDepth int) *DirProvider {
	return &DirProvider{dirs: dirs, maxParentDepth: maxParentDepth}
}

// TrustedRootDERs scans the directories and returns the DER of every
// parseable certificate. Unparseable files are skipped.
func (p *DirProvider) TrustedRootDERs() ([][]byte, error) {
	loader := &Loader{Dirs: p.dirs, MaxParentDepth: p.maxParentDepth}
	pool, err := loader.Load()
	if err != nil {
		return nil, err
	}

	certs := pool.Certificates()
	ders := make([][]byte, 0, len(certs))
	for _, cert := range certs {
		ders = append(ders, cert.Raw)
	}
	return ders, nil
}
