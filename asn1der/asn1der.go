package asn1der

import (
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Algorithm OIDs
var (
	// OIDRSAEncryption is the rsaEncryption algorithm (1.2.840.113549.1.1.1).
	OIDRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

	// OIDSHA256WithRSA is the sha256WithRSAEncryption signature algorithm
	// (1.2.840.113549.1.1.11).
	OIDSHA256WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
)

// utcTimeFormat is the YYMMDDHHMMSSZ layout required for UTCTime.
const utcTimeFormat = "060102150405Z"

// TBSCertificate describes the to-be-signed body of an X.509v3
// certificate. The version is fixed at v3; serial uniqueness across a CA is
// the caller's responsibility.
type TBSCertificate struct {
	SerialNumber *big.Int
	Issuer       Name
	Subject      Name
	NotBefore    time.Time
	NotAfter     time.Time

	// PublicKey is the subject's RSA public key.
	PublicKey *rsa.PublicKey

	// IssuerKey is the issuer's RSA public key, used for the AKID. It is
	// ignored for self-issued certificates and required otherwise.
	IssuerKey *rsa.PublicKey

	IsCA     bool
	CRLURLs  []string
	OCSPURLs []string
}

// SelfIssued reports whether subject and issuer carry the same DN, which
// suppresses the AuthorityKeyIdentifier extension.
func (tbs *TBSCertificate) SelfIssued() bool {
	return tbs.Subject.String() == tbs.Issuer.String()
}

// EncodeAlgorithmIdentifier serializes SEQUENCE{OID, NULL}. The same
// encoding is used for the TBS signature field and the outer certificate
// algorithm field, so the two are byte-identical by construction.
func EncodeAlgorithmIdentifier(oid asn1.ObjectIdentifier) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	addAlgorithmIdentifier(b, oid)
	return b.Bytes()
}

func addAlgorithmIdentifier(b *cryptobyte.Builder, oid asn1.ObjectIdentifier) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1(cryptobyte_asn1.NULL, func(b *cryptobyte.Builder) {})
	})
}

// EncodeRSAPublicKey serializes the raw RSA key sequence
// SEQUENCE{INTEGER modulus, INTEGER exponent}. This is also the digest
// input for SKID/AKID computation.
func EncodeRSAPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(pub.N)
		b.AddASN1BigInt(big.NewInt(int64(pub.E)))
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode RSA public key: %w", err)
	}
	return der, nil
}

// EncodeSubjectPublicKeyInfo serializes
// SEQUENCE{AlgorithmIdentifier(rsaEncryption), BIT STRING{RSAPublicKey}}.
func EncodeSubjectPublicKeyInfo(pub *rsa.PublicKey) ([]byte, error) {
	keyDER, err := EncodeRSAPublicKey(pub)
	if err != nil {
		return nil, err
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addAlgorithmIdentifier(b, OIDRSAEncryption)
		b.AddASN1BitString(keyDER)
	})
	return b.Bytes()
}

// EncodeTBSCertificate serializes the TBSCertificate with the fixed field
// order: [0] EXPLICIT version, serial, signature algorithm, issuer,
// validity, subject, SubjectPublicKeyInfo, [3] EXPLICIT extensions.
func EncodeTBSCertificate(tbs *TBSCertificate) ([]byte, error) {
	if tbs.SerialNumber == nil {
		return nil, fmt.Errorf("TBSCertificate requires a serial number")
	}
	if tbs.PublicKey == nil {
		return nil, fmt.Errorf("TBSCertificate requires a subject public key")
	}

	issuerDER, err := EncodeName(tbs.Issuer)
	if err != nil {
		return nil, err
	}
	subjectDER, err := EncodeName(tbs.Subject)
	if err != nil {
		return nil, err
	}
	spkiDER, err := EncodeSubjectPublicKeyInfo(tbs.PublicKey)
	if err != nil {
		return nil, err
	}
	exts, err := buildExtensions(tbs)
	if err != nil {
		return nil, err
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		// version [0] EXPLICIT INTEGER, fixed v3
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
			b.AddASN1Int64(2)
		})
		b.AddASN1BigInt(tbs.SerialNumber)
		addAlgorithmIdentifier(b, OIDSHA256WithRSA)
		b.AddBytes(issuerDER)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			addUTCTime(b, tbs.NotBefore)
			addUTCTime(b, tbs.NotAfter)
		})
		b.AddBytes(subjectDER)
		b.AddBytes(spkiDER)
		b.AddASN1(cryptobyte_asn1.Tag(3).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				for _, ext := range exts {
					extDER, err := EncodeExtension(ext)
					if err != nil {
						b.SetError(err)
						return
					}
					b.AddBytes(extDER)
				}
			})
		})
	})

	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode TBSCertificate: %w", err)
	}
	return der, nil
}

// EncodeCertificate assembles the outer certificate:
// SEQUENCE{TBSCertificate, AlgorithmIdentifier, BIT STRING{signature}}.
// The algorithm field repeats the TBS signature algorithm byte for byte.
func EncodeCertificate(tbsDER, signature []byte) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(tbsDER)
		addAlgorithmIdentifier(b, OIDSHA256WithRSA)
		b.AddASN1BitString(signature)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode certificate: %w", err)
	}
	return der, nil
}

func addUTCTime(b *cryptobyte.Builder, t time.Time) {
	b.AddASN1(cryptobyte_asn1.UTCTime, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(t.UTC().Format(utcTimeFormat)))
	})
}
