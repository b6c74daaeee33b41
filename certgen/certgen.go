// Package certgen produces signed X.509v3 certificates for the three
// certificate roles: self-signed roots, intermediate CAs and end-entity
// (user) certificates. All roles funnel into a single Create operation
// that encodes the TBS body, signs it with the issuer key using
// RSA PKCS#1 v1.5 over SHA-256, and assembles the final DER certificate.
package certgen

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/georgepadayatti/gopki/asn1der"
	"github.com/georgepadayatti/gopki/keys"
)

// Common errors
var (
	ErrMissingKeyPair = errors.New("missing key pair")
	ErrMissingSerial  = errors.New("missing serial number")
)

// Default validity windows per certificate role.
const (
	DefaultRootValidityYears         = 10
	DefaultIntermediateValidityYears = 5
	DefaultUserValidityDays          = 365
)

// RootSerialNumber is the fixed serial for self-signed roots.
var RootSerialNumber = big.NewInt(1)

// Certificate is an immutable signed certificate: the DER bytes plus the
// parsed form for convenience. Identity for chain-walking purposes is the
// subject/issuer DN pair.
type Certificate struct {
	// DER is the full encoded certificate.
	DER []byte

	// Cert is the parsed certificate.
	Cert *x509.Certificate

	// Subject and Issuer are the DNs the certificate was built from.
	Subject asn1der.Name
	Issuer  asn1der.Name
}

// PEM returns the certificate as a PEM-encoded block.
func (c *Certificate) PEM() []byte {
	return keys.CertToPEM(c.DER)
}

// Params are the low-level inputs to Create. The three role constructors
// fill in role defaults and delegate here.
type Params struct {
	// KeyPair is the subject's key pair.
	KeyPair *keys.KeyPair

	// IssuerKeyPair signs the certificate. For self-signed roots it is the
	// same handle as KeyPair.
	IssuerKeyPair *keys.KeyPair

	SubjectDN    asn1der.Name
	IssuerDN     asn1der.Name
	SerialNumber *big.Int
	NotBefore    time.Time
	NotAfter     time.Time
	IsCA         bool

	// CRLURLs and OCSPURLs feed the CRLDistributionPoints and
	// AuthorityInfoAccess extensions. Empty lists omit the extension
	// entirely.
	CRLURLs  []string
	OCSPURLs []string
}

// Factory creates certificates with a configurable clock and randomness
// source. The zero value is not usable; construct with NewFactory.
type Factory struct {
	clock  clockwork.Clock
	random io.Reader
}

// NewFactory creates a Factory using the real clock and the process-wide
// CSPRNG.
func NewFactory() *Factory {
	return &Factory{clock: clockwork.NewRealClock(), random: rand.Reader}
}

// NewFactoryWithClock creates a Factory with an explicit clock and
// randomness source, for deterministic tests and for composition roots
// that inject their own randomness handle. A nil random source falls back
// to the process-wide CSPRNG.
func NewFactoryWithClock(clock clockwork.Clock, random io.Reader) *Factory {
	if random == nil {
		random = rand.Reader
	}
	return &Factory{clock: clock, random: random}
}

// NewRootCertificate creates a self-signed root CA certificate: serial 1,
// issuer equal to subject, no AuthorityKeyIdentifier and no revocation
// pointers. A zero validityYears uses DefaultRootValidityYears.
func (f *Factory) NewRootCertificate(kp *keys.KeyPair, dn asn1der.Name, validityYears int) (*Certificate, error) {
	if validityYears == 0 {
		validityYears = DefaultRootValidityYears
	}
	now := f.clock.Now()
	return f.Create(Params{
		KeyPair:       kp,
		IssuerKeyPair: kp,
		SubjectDN:     dn,
		IssuerDN:      dn,
		SerialNumber:  RootSerialNumber,
		NotBefore:     now,
		NotAfter:      now.AddDate(validityYears, 0, 0),
		IsCA:          true,
	})
}

// NewIntermediateCertificate creates a CA certificate issued by another
// CA. A zero validityYears uses DefaultIntermediateValidityYears.
func (f *Factory) NewIntermediateCertificate(kp, issuerKP *keys.KeyPair, subjectDN, issuerDN asn1der.Name,
	serialNumber *big.Int, crlURLs, ocspURLs []string, validityYears int) (*Certificate, error) {
	if validityYears == 0 {
		validityYears = DefaultIntermediateValidityYears
	}
	now := f.clock.Now()
	return f.Create(Params{
		KeyPair:       kp,
		IssuerKeyPair: issuerKP,
		SubjectDN:     subjectDN,
		IssuerDN:      issuerDN,
		SerialNumber:  serialNumber,
		NotBefore:     now,
		NotAfter:      now.AddDate(validityYears, 0, 0),
		IsCA:          true,
		CRLURLs:       crlURLs,
		OCSPURLs:      ocspURLs,
	})
}

// NewUserCertificate creates an end-entity certificate. A zero
// validityDays uses DefaultUserValidityDays.
func (f *Factory) NewUserCertificate(kp, issuerKP *keys.KeyPair, subjectDN, issuerDN asn1der.Name,
	serialNumber *big.Int, crlURLs, ocspURLs []string, validityDays int) (*Certificate, error) {
	if validityDays == 0 {
		validityDays = DefaultUserValidityDays
	}
	now := f.clock.Now()
	return f.Create(Params{
		KeyPair:       kp,
		IssuerKeyPair: issuerKP,
		SubjectDN:     subjectDN,
		IssuerDN:      issuerDN,
		SerialNumber:  serialNumber,
		NotBefore:     now,
		NotAfter:      now.AddDate(0, 0, validityDays),
		CRLURLs:       crlURLs,
		OCSPURLs:      ocspURLs,
	})
}

// Create builds, signs and assembles a certificate from explicit
// parameters. Signing failures are fatal and propagate; there is no
// fallback signature path.
func (f *Factory) Create(params Params) (*Certificate, error) {
	if params.KeyPair == nil || params.IssuerKeyPair == nil {
		return nil, fmt.Errorf("%w: subject and issuer key pairs are required", ErrMissingKeyPair)
	}
	if params.SerialNumber == nil {
		return nil, fmt.Errorf("%w: serial number is required", ErrMissingSerial)
	}

	tbs := &asn1der.TBSCertificate{
		SerialNumber: params.SerialNumber,
		Issuer:       params.IssuerDN,
		Subject:      params.SubjectDN,
		NotBefore:    params.NotBefore,
		NotAfter:     params.NotAfter,
		PublicKey:    params.KeyPair.Public(),
		IssuerKey:    params.IssuerKeyPair.Public(),
		IsCA:         params.IsCA,
		CRLURLs:      params.CRLURLs,
		OCSPURLs:     params.OCSPURLs,
	}

	tbsDER, err := asn1der.EncodeTBSCertificate(tbs)
	if err != nil {
		return nil, err
	}

	signature, err := signSHA256(f.random, params.IssuerKeyPair.PrivateKey, tbsDER)
	if err != nil {
		return nil, fmt.Errorf("failed to sign certificate for %q: %w", params.SubjectDN.String(), err)
	}

	der, err := asn1der.EncodeCertificate(tbsDER, signature)
	if err != nil {
		return nil, err
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("encoded certificate failed to re-parse: %w", err)
	}

	return &Certificate{
		DER:     der,
		Cert:    cert,
		Subject: params.SubjectDN,
		Issuer:  params.IssuerDN,
	}, nil
}

// signSHA256 signs message with RSA PKCS#1 v1.5 over its SHA-256 digest.
func signSHA256(random io.Reader, key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return rsa.SignPKCS1v15(random, key, crypto.SHA256, digest[:])
}
