package asn1der

import (
	"crypto/rsa"
	"crypto/sha1"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Extension OIDs
var (
	oidBasicConstraints       = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidKeyUsage               = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidSubjectKeyIdentifier   = asn1.ObjectIdentifier{2, 5, 29, 14}
	oidAuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}
	oidCRLDistributionPoints  = asn1.ObjectIdentifier{2, 5, 29, 31}
	oidAuthorityInfoAccess    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}

	// OIDAccessMethodOCSP is the id-ad-ocsp access method (1.3.6.1.5.5.7.48.1),
	// the only access method emitted in AuthorityInfoAccess.
	OIDAccessMethodOCSP = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
)

// KeyUsage bit patterns, one encoded byte per certificate role. The bytes
// follow DER BIT STRING bit-significance order: bit 0 is the high bit.
const (
	// keyUsageCABits sets keyCertSign (bit 5) and cRLSign (bit 6).
	keyUsageCABits       byte = 0x06
	keyUsageCAUnusedBits byte = 1

	// keyUsageLeafBits sets digitalSignature (bit 0) and nonRepudiation (bit 1).
	keyUsageLeafBits       byte = 0xC0
	keyUsageLeafUnusedBits byte = 6
)

// Extension is a single certificate extension: an OID, a criticality flag
// and the DER of the extension value (before OCTET STRING wrapping).
type Extension struct {
	OID      asn1.ObjectIdentifier
	Critical bool
	Value    []byte
}

// EncodeExtension serializes one extension as
// SEQUENCE{OID, [BOOLEAN true], OCTET STRING{value}}. The BOOLEAN is
// omitted for non-critical extensions, matching the DER default rule.
func EncodeExtension(ext Extension) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(ext.OID)
		if ext.Critical {
			b.AddASN1Boolean(true)
		}
		b.AddASN1OctetString(ext.Value)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode extension %s: %w", ext.OID.String(), err)
	}
	return der, nil
}

// EncodeBasicConstraints builds the BasicConstraints extension value. A CA
// subject yields SEQUENCE{BOOLEAN true}; an end entity yields an empty
// SEQUENCE, relying on the cA DEFAULT FALSE.
func EncodeBasicConstraints(isCA bool) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		if isCA {
			b.AddASN1Boolean(true)
		}
	})
	return b.Bytes()
}

// EncodeKeyUsage builds the KeyUsage BIT STRING value for a role. CA
// certificates assert keyCertSign and cRLSign; end entities assert
// digitalSignature and nonRepudiation.
func EncodeKeyUsage(isCA bool) ([]byte, error) {
	bits, unused := keyUsageLeafBits, keyUsageLeafUnusedBits
	if isCA {
		bits, unused = keyUsageCABits, keyUsageCAUnusedBits
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.BIT_STRING, func(b *cryptobyte.Builder) {
		b.AddUint8(unused)
		b.AddUint8(bits)
	})
	return b.Bytes()
}

// KeyIdentifier computes the 20-byte key identifier for an RSA public key:
// the SHA-1 digest of the DER encoding of SEQUENCE{modulus, exponent}.
// Note that the digest input is the raw key sequence, not the full
// SubjectPublicKeyInfo; existing deployments depend on this exact input.
func KeyIdentifier(pub *rsa.PublicKey) ([]byte, error) {
	keyDER, err := EncodeRSAPublicKey(pub)
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum(keyDER)
	return sum[:], nil
}

// EncodeSubjectKeyIdentifier builds the SKID extension value: an OCTET
// STRING holding the subject key identifier.
func EncodeSubjectKeyIdentifier(pub *rsa.PublicKey) ([]byte, error) {
	keyID, err := KeyIdentifier(pub)
	if err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1OctetString(keyID)
	return b.Bytes()
}

// EncodeAuthorityKeyIdentifier builds the AKID extension value:
// SEQUENCE{[0] IMPLICIT keyIdentifier} over the issuer's key identifier.
func EncodeAuthorityKeyIdentifier(issuerPub *rsa.PublicKey) ([]byte, error) {
	keyID, err := KeyIdentifier(issuerPub)
	if err != nil {
		return nil, err
	}
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific(), func(b *cryptobyte.Builder) {
			b.AddBytes(keyID)
		})
	})
	return b.Bytes()
}

// EncodeCRLDistributionPoints builds the CRLDistributionPoints extension
// value: one DistributionPoint per URL, each carrying a [0] EXPLICIT
// DistributionPointName whose fullName is a [0] GeneralNames holding a
// single [6] IMPLICIT IA5String URI.
func EncodeCRLDistributionPoints(urls []string) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, url := range urls {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
					b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
						b.AddASN1(cryptobyte_asn1.Tag(6).ContextSpecific(), func(b *cryptobyte.Builder) {
							b.AddBytes([]byte(url))
						})
					})
				})
			})
		}
	})
	return b.Bytes()
}

// EncodeAuthorityInfoAccess builds the AuthorityInfoAccess extension value:
// one AccessDescription per URL with accessMethod id-ad-ocsp and a [6]
// IMPLICIT IA5String URI accessLocation.
func EncodeAuthorityInfoAccess(ocspURLs []string) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, url := range ocspURLs {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(OIDAccessMethodOCSP)
				b.AddASN1(cryptobyte_asn1.Tag(6).ContextSpecific(), func(b *cryptobyte.Builder) {
					b.AddBytes([]byte(url))
				})
			})
		}
	})
	return b.Bytes()
}

// buildExtensions assembles the extension list for a TBSCertificate in
// emission order. BasicConstraints and KeyUsage are always present and
// critical. The AKID is omitted for self-issued certificates; the
// revocation pointers are omitted when their URL lists are empty.
func buildExtensions(tbs *TBSCertificate) ([]Extension, error) {
	basicConstraints, err := EncodeBasicConstraints(tbs.IsCA)
	if err != nil {
		return nil, err
	}
	keyUsage, err := EncodeKeyUsage(tbs.IsCA)
	if err != nil {
		return nil, err
	}
	skid, err := EncodeSubjectKeyIdentifier(tbs.PublicKey)
	if err != nil {
		return nil, err
	}

	exts := []Extension{
		{OID: oidBasicConstraints, Critical: true, Value: basicConstraints},
		{OID: oidKeyUsage, Critical: true, Value: keyUsage},
		{OID: oidSubjectKeyIdentifier, Value: skid},
	}

	if !tbs.SelfIssued() {
		issuerKey := tbs.IssuerKey
		if issuerKey == nil {
			return nil, fmt.Errorf("issuer public key required for AKID when subject %q differs from issuer %q",
				tbs.Subject.String(), tbs.Issuer.String())
		}
		akid, err := EncodeAuthorityKeyIdentifier(issuerKey)
		if err != nil {
			return nil, err
		}
		exts = append(exts, Extension{OID: oidAuthorityKeyIdentifier, Value: akid})
	}

	if len(tbs.CRLURLs) > 0 {
		crlDP, err := EncodeCRLDistributionPoints(tbs.CRLURLs)
		if err != nil {
			return nil, err
		}
		exts = append(exts, Extension{OID: oidCRLDistributionPoints, Value: crlDP})
	}

	if len(tbs.OCSPURLs) > 0 {
		aia, err := EncodeAuthorityInfoAccess(tbs.OCSPURLs)
		if err != nil {
			return nil, err
		}
		exts = append(exts, Extension{OID: oidAuthorityInfoAccess, Value: aia})
	}

	return exts, nil
}
