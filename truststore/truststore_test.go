package truststore

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/georgepadayatti/gopki/asn1der"
	"github.com/georgepadayatti/gopki/certgen"
	"github.com/georgepadayatti/gopki/keys"
)

func newTestCert(t *testing.T, cn string) *certgen.Certificate {
	t.Helper()

	kp, err := keys.GenerateKeyPair(nil, 1024)
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	factory := certgen.NewFactoryWithClock(clock, nil)

	cert, err := factory.NewRootCertificate(kp, asn1der.ParseName("CN="+cn+",O=Test"), 10)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return cert
}

func TestLoaderSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	good := newTestCert(t, "Good Root")
	if err := os.WriteFile(filepath.Join(dir, "good.pem"), good.PEM(), 0o644); err != nil {
		t.Fatalf("failed to write good.pem: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "corrupt.crt"), []byte("not a certificate at all"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt.crt: %v", err)
	}

	loader := &Loader{Dirs: []string{dir}}
	pool, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if pool.Len() != 1 {
		t.Errorf("pool size = %d, want 1", pool.Len())
	}
	skipped := pool.Skipped()
	if len(skipped) != 1 {
		t.Fatalf("skipped count = %d, want 1", len(skipped))
	}
	if filepath.Base(skipped[0].Path) != "corrupt.crt" {
		t.Errorf("skipped file = %s, want corrupt.crt", skipped[0].Path)
	}
	if skipped[0].Reason == nil {
		t.Error("skip diagnostic must carry a reason")
	}
}

func TestLoaderMultiBlockPEM(t *testing.T) {
	dir := t.TempDir()

	first := newTestCert(t, "First Root")
	second := newTestCert(t, "Second Root")
	bundle := append(first.PEM(), second.PEM()...)
	if err := os.WriteFile(filepath.Join(dir, "bundle.pem"), bundle, 0o644); err != nil {
		t.Fatalf("failed to write bundle.pem: %v", err)
	}

	loader := &Loader{Dirs: []string{dir}}
	pool, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("pool size = %d, want 2 from concatenated PEM blocks", pool.Len())
	}
}

func TestLoaderDERFile(t *testing.T) {
	dir := t.TempDir()

	cert := newTestCert(t, "DER Root")
	if err := os.WriteFile(filepath.Join(dir, "root.DER"), cert.DER, 0o644); err != nil {
		t.Fatalf("failed to write root.DER: %v", err)
	}
	// Files with unrelated extensions are ignored entirely.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("failed to write notes.txt: %v", err)
	}

	loader := &Loader{Dirs: []string{dir}}
	pool, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if pool.Len() != 1 {
		t.Errorf("pool size = %d, want 1", pool.Len())
	}
	if len(pool.Skipped()) != 0 {
		t.Errorf("skipped = %v, want none", pool.Skipped())
	}
}

func TestLoaderRecursesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "national", "roots")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}

	cert := newTestCert(t, "Nested Root")
	if err := os.WriteFile(filepath.Join(sub, "root.cer"), cert.DER, 0o644); err != nil {
		t.Fatalf("failed to write root.cer: %v", err)
	}

	loader := &Loader{Dirs: []string{dir}}
	pool, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if pool.Len() != 1 {
		t.Errorf("pool size = %d, want 1 from nested directory", pool.Len())
	}
}

func TestLoaderAncestorResolution(t *testing.T) {
	base := t.TempDir()
	trustDir := filepath.Join(base, "trustdir")
	if err := os.MkdirAll(trustDir, 0o755); err != nil {
		t.Fatalf("failed to create trust directory: %v", err)
	}
	cert := newTestCert(t, "Ancestor Root")
	if err := os.WriteFile(filepath.Join(trustDir, "root.crt"), cert.DER, 0o644); err != nil {
		t.Fatalf("failed to write root.crt: %v", err)
	}

	nested := filepath.Join(base, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested directory: %v", err)
	}
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	tests := []struct {
		name    string
		depth   int
		wantLen int
	}{
		{"depth reaches ancestor", 2, 1},
		{"depth too small", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &Loader{Dirs: []string{"trustdir"}, MaxParentDepth: tt.depth}
			pool, err := loader.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if pool.Len() != tt.wantLen {
				t.Errorf("pool size = %d, want %d", pool.Len(), tt.wantLen)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	first := newTestCert(t, "Static One")
	second := newTestCert(t, "Static Two")
	bundle := append(first.PEM(), second.PEM()...)

	provider := NewStaticProvider("test-store", bundle)
	ders, err := provider.TrustedRootDERs()
	if err != nil {
		t.Fatalf("TrustedRootDERs() error = %v", err)
	}
	if len(ders) != 2 {
		t.Fatalf("DER count = %d, want 2", len(ders))
	}
	if !bytes.Equal(ders[0], first.DER) || !bytes.Equal(ders[1], second.DER) {
		t.Error("provider DERs do not match source certificates")
	}
}

func TestStaticProviderEmpty(t *testing.T) {
	provider := NewStaticProvider("empty-store", []byte("no pem here"))
	if _, err := provider.TrustedRootDERs(); err == nil {
		t.Error("expected error for bundle without certificates")
	}
}

func TestKeystoreProvider(t *testing.T) {
	cert := newTestCert(t, "Keystore Root")

	data, err := pkcs12.Modern2023.EncodeTrustStore([]*x509.Certificate{cert.Cert}, "changeit")
	if err != nil {
		t.Fatalf("failed to encode trust store: %v", err)
	}
	path := filepath.Join(t.TempDir(), "trust.p12")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write keystore: %v", err)
	}

	provider := NewKeystoreProvider(path, "changeit")
	ders, err := provider.TrustedRootDERs()
	if err != nil {
		t.Fatalf("TrustedRootDERs() error = %v", err)
	}
	if len(ders) != 1 {
		t.Fatalf("DER count = %d, want 1", len(ders))
	}
	if !bytes.Equal(ders[0], cert.DER) {
		t.Error("keystore DER does not match source certificate")
	}
}

func TestKeystoreProviderMissingFile(t *testing.T) {
	provider := NewKeystoreProvider(filepath.Join(t.TempDir(), "missing.p12"), "changeit")
	if _, err := provider.TrustedRootDERs(); err == nil {
		t.Error("expected descriptive error for missing keystore file")
	}

	loader := &Loader{Providers: []Provider{provider}}
	if _, err := loader.Load(); err == nil {
		t.Error("missing keystore must be fatal to the load")
	}
}

func TestTrustListProvider(t *testing.T) {
	cert := newTestCert(t, "Trust List Root")
	b64 := base64.StdEncoding.EncodeToString(cert.DER)

	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<tsl:TrustServiceStatusList xmlns:tsl="http://uri.etsi.org/02231/v2#">
  <tsl:TrustServiceProviderList>
    <tsl:ServiceDigitalIdentity>
      <tsl:DigitalId>
        <tsl:X509Certificate>%s</tsl:X509Certificate>
      </tsl:DigitalId>
    </tsl:ServiceDigitalIdentity>
  </tsl:TrustServiceProviderList>
</tsl:TrustServiceStatusList>`, b64)

	path := filepath.Join(t.TempDir(), "trustlist.xml")
	if err := os.WriteFile(path, []byte(xml), 0o644); err != nil {
		t.Fatalf("failed to write trust list: %v", err)
	}

	provider := NewTrustListProvider(path)
	ders, err := provider.TrustedRootDERs()
	if err != nil {
		t.Fatalf("TrustedRootDERs() error = %v", err)
	}
	if len(ders) != 1 {
		t.Fatalf("DER count = %d, want 1", len(ders))
	}
	if !bytes.Equal(ders[0], cert.DER) {
		t.Error("trust list DER does not match source certificate")
	}
}

func TestLoaderMergesProviders(t *testing.T) {
	dir := t.TempDir()
	dirCert := newTestCert(t, "Dir Root")
	if err := os.WriteFile(filepath.Join(dir, "root.pem"), dirCert.PEM(), 0o644); err != nil {
		t.Fatalf("failed to write root.pem: %v", err)
	}

	staticCert := newTestCert(t, "Static Root")
	provider := NewStaticProvider("embedded", staticCert.PEM())

	loader := &Loader{Dirs: []string{dir}, Providers: []Provider{provider}}
	pool, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("pool size = %d, want 2 (directory + provider)", pool.Len())
	}

	subjects := make(map[string]bool)
	for _, cert := range pool.Certificates() {
		subjects[cert.Subject.CommonName] = true
	}
	if !subjects["Dir Root"] || !subjects["Static Root"] {
		t.Errorf("pool subjects = %v, want both sources represented", subjects)
	}
}
