package asn1der

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"math/big"
	"testing"
	"time"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}

func TestEncodeAlgorithmIdentifier(t *testing.T) {
	der, err := EncodeAlgorithmIdentifier(OIDSHA256WithRSA)
	if err != nil {
		t.Fatalf("EncodeAlgorithmIdentifier() error = %v", err)
	}

	// SEQUENCE{OID sha256WithRSAEncryption, NULL}
	expected := "300d06092a864886f70d01010b0500"
	if hex.EncodeToString(der) != expected {
		t.Errorf("EncodeAlgorithmIdentifier() = %x, want %s", der, expected)
	}
}

func TestEncodeName(t *testing.T) {
	tests := []struct {
		name     string
		dn       string
		expected string
	}{
		{
			name:     "single CN",
			dn:       "CN=A",
			expected: "300c310a30080603550403130141",
		},
		{
			name:     "empty name",
			dn:       "",
			expected: "3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der, err := EncodeName(ParseName(tt.dn))
			if err != nil {
				t.Fatalf("EncodeName() error = %v", err)
			}
			if hex.EncodeToString(der) != tt.expected {
				t.Errorf("EncodeName(%q) = %x, want %s", tt.dn, der, tt.expected)
			}
		})
	}
}

func TestEncodeNameAttributeOrder(t *testing.T) {
	der, err := EncodeName(ParseName("CN=Root,O=Example,C=DE"))
	if err != nil {
		t.Fatalf("EncodeName() error = %v", err)
	}

	var rdnSeq pkix.RDNSequence
	if _, err := asn1.Unmarshal(der, &rdnSeq); err != nil {
		t.Fatalf("encoded name failed to re-parse: %v", err)
	}
	if len(rdnSeq) != 3 {
		t.Fatalf("expected 3 RDNs, got %d", len(rdnSeq))
	}

	wantOIDs := []asn1.ObjectIdentifier{oidCommonName, oidOrganization, oidCountry}
	for i, rdn := range rdnSeq {
		if len(rdn) != 1 {
			t.Fatalf("RDN %d: expected single attribute, got %d", i, len(rdn))
		}
		if !rdn[0].Type.Equal(wantOIDs[i]) {
			t.Errorf("RDN %d: OID = %s, want %s", i, rdn[0].Type, wantOIDs[i])
		}
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full DN", "CN=Root,O=Example,C=DE", "CN=Root,O=Example,C=DE"},
		{"whitespace trimmed", " CN = Root , O = Example ", "CN=Root,O=Example"},
		{"unknown attribute dropped", "CN=Root,OU=Unit,C=DE", "CN=Root,C=DE"},
		{"malformed pair dropped", "CN=Root,garbage,C=DE", "CN=Root,C=DE"},
		{"all unknown yields empty", "OU=Unit,L=Berlin", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := ParseName(tt.input)
			if name.String() != tt.expected {
				t.Errorf("ParseName(%q).String() = %q, want %q", tt.input, name.String(), tt.expected)
			}
		})
	}
}

func TestParseNameStrict(t *testing.T) {
	if _, err := ParseNameStrict("CN=Root,O=Example,C=DE"); err != nil {
		t.Errorf("ParseNameStrict() unexpected error: %v", err)
	}

	tests := []string{
		"CN=Root,OU=Unit",
		"CN=Root,garbage",
	}
	for _, input := range tests {
		if _, err := ParseNameStrict(input); err == nil {
			t.Errorf("ParseNameStrict(%q) expected error, got nil", input)
		}
	}
}

func TestEncodeRSAPublicKeyMatchesPKCS1(t *testing.T) {
	key := testKey(t)

	der, err := EncodeRSAPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodeRSAPublicKey() error = %v", err)
	}

	expected := x509.MarshalPKCS1PublicKey(&key.PublicKey)
	if !bytes.Equal(der, expected) {
		t.Errorf("EncodeRSAPublicKey() does not match PKCS#1 encoding")
	}
}

func TestEncodeSubjectPublicKeyInfoMatchesPKIX(t *testing.T) {
	key := testKey(t)

	der, err := EncodeSubjectPublicKeyInfo(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodeSubjectPublicKeyInfo() error = %v", err)
	}

	expected, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey() error = %v", err)
	}
	if !bytes.Equal(der, expected) {
		t.Errorf("EncodeSubjectPublicKeyInfo() does not match PKIX encoding")
	}
}

func TestKeyIdentifier(t *testing.T) {
	key := testKey(t)

	keyID, err := KeyIdentifier(&key.PublicKey)
	if err != nil {
		t.Fatalf("KeyIdentifier() error = %v", err)
	}
	if len(keyID) != sha1.Size {
		t.Fatalf("KeyIdentifier() length = %d, want %d", len(keyID), sha1.Size)
	}

	// Digest input is the raw key sequence, not the full SPKI.
	sum := sha1.Sum(x509.MarshalPKCS1PublicKey(&key.PublicKey))
	if !bytes.Equal(keyID, sum[:]) {
		t.Errorf("KeyIdentifier() = %x, want SHA-1 of key sequence %x", keyID, sum)
	}
}

func TestEncodeKeyUsage(t *testing.T) {
	tests := []struct {
		name     string
		isCA     bool
		expected string
	}{
		{"CA sets keyCertSign and cRLSign", true, "03020106"},
		{"leaf sets digitalSignature and nonRepudiation", false, "030206c0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der, err := EncodeKeyUsage(tt.isCA)
			if err != nil {
				t.Fatalf("EncodeKeyUsage() error = %v", err)
			}
			if hex.EncodeToString(der) != tt.expected {
				t.Errorf("EncodeKeyUsage(isCA=%v) = %x, want %s", tt.isCA, der, tt.expected)
			}
		})
	}
}

func TestEncodeBasicConstraints(t *testing.T) {
	tests := []struct {
		name     string
		isCA     bool
		expected string
	}{
		{"CA", true, "30030101ff"},
		{"end entity", false, "3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der, err := EncodeBasicConstraints(tt.isCA)
			if err != nil {
				t.Fatalf("EncodeBasicConstraints() error = %v", err)
			}
			if hex.EncodeToString(der) != tt.expected {
				t.Errorf("EncodeBasicConstraints(isCA=%v) = %x, want %s", tt.isCA, der, tt.expected)
			}
		})
	}
}

func TestEncodeExtensionCriticalFlag(t *testing.T) {
	value := []byte{0x30, 0x00}
	oid := asn1.ObjectIdentifier{2, 5, 29, 19}

	critical, err := EncodeExtension(Extension{OID: oid, Critical: true, Value: value})
	if err != nil {
		t.Fatalf("EncodeExtension() error = %v", err)
	}
	nonCritical, err := EncodeExtension(Extension{OID: oid, Value: value})
	if err != nil {
		t.Fatalf("EncodeExtension() error = %v", err)
	}

	if !bytes.Contains(critical, []byte{0x01, 0x01, 0xff}) {
		t.Errorf("critical extension missing BOOLEAN true: %x", critical)
	}
	if bytes.Contains(nonCritical, []byte{0x01, 0x01, 0xff}) {
		t.Errorf("non-critical extension should omit the BOOLEAN: %x", nonCritical)
	}
}

func TestTBSCertificateSelfIssued(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		issuer   string
		expected bool
	}{
		{"same DN", "CN=Root,O=Example", "CN=Root,O=Example", true},
		{"different DN", "CN=Leaf", "CN=Root", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbs := &TBSCertificate{
				Subject: ParseName(tt.subject),
				Issuer:  ParseName(tt.issuer),
			}
			if tbs.SelfIssued() != tt.expected {
				t.Errorf("SelfIssued() = %v, want %v", tbs.SelfIssued(), tt.expected)
			}
		})
	}
}

func TestEncodeTBSCertificateValidation(t *testing.T) {
	key := testKey(t)
	now := time.Now()

	tests := []struct {
		name string
		tbs  *TBSCertificate
	}{
		{
			name: "missing serial",
			tbs: &TBSCertificate{
				Subject:   ParseName("CN=A"),
				Issuer:    ParseName("CN=A"),
				NotBefore: now,
				NotAfter:  now.AddDate(1, 0, 0),
				PublicKey: &key.PublicKey,
			},
		},
		{
			name: "missing public key",
			tbs: &TBSCertificate{
				SerialNumber: big.NewInt(1),
				Subject:      ParseName("CN=A"),
				Issuer:       ParseName("CN=A"),
				NotBefore:    now,
				NotAfter:     now.AddDate(1, 0, 0),
			},
		},
		{
			name: "missing issuer key for non-self-issued",
			tbs: &TBSCertificate{
				SerialNumber: big.NewInt(2),
				Subject:      ParseName("CN=Leaf"),
				Issuer:       ParseName("CN=Root"),
				NotBefore:    now,
				NotAfter:     now.AddDate(1, 0, 0),
				PublicKey:    &key.PublicKey,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeTBSCertificate(tt.tbs); err == nil {
				t.Errorf("EncodeTBSCertificate() expected error, got nil")
			}
		})
	}
}

func TestFromPKIXName(t *testing.T) {
	name := FromPKIXName(pkix.Name{
		CommonName:   "Root",
		Organization: []string{"Example"},
		Country:      []string{"DE"},
	})
	if name.String() != "CN=Root,O=Example,C=DE" {
		t.Errorf("FromPKIXName() = %q, want %q", name.String(), "CN=Root,O=Example,C=DE")
	}
}
