// Package asn1der provides deterministic DER serialization of X.509v3
// certificate structures. All encoders produce canonical DER with explicit
// tag/length framing; the byte layout is a wire-format contract relied on
// by deployed relying parties and must not drift.
package asn1der

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ErrUnknownAttribute reports a DN attribute key outside the supported set.
var ErrUnknownAttribute = errors.New("unknown DN attribute")

// AttributeType is one of the distinguished-name attribute types supported
// by the encoder. The set is closed: CN, O and C.
type AttributeType int

const (
	// AttrCommonName is the CN attribute (OID 2.5.4.3).
	AttrCommonName AttributeType = iota
	// AttrOrganization is the O attribute (OID 2.5.4.10).
	AttrOrganization
	// AttrCountry is the C attribute (OID 2.5.4.6).
	AttrCountry
)

// DN attribute OIDs
var (
	oidCommonName   = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidOrganization = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidCountry      = asn1.ObjectIdentifier{2, 5, 4, 6}
)

// OID returns the ASN.1 object identifier for the attribute type.
func (t AttributeType) OID() asn1.ObjectIdentifier {
	switch t {
	case AttrCommonName:
		return oidCommonName
	case AttrOrganization:
		return oidOrganization
	case AttrCountry:
		return oidCountry
	}
	return nil
}

// String returns the conventional short key for the attribute type.
func (t AttributeType) String() string {
	switch t {
	case AttrCommonName:
		return "CN"
	case AttrOrganization:
		return "O"
	case AttrCountry:
		return "C"
	}
	return "?"
}

// attributeTypeForKey maps a DN string key to its attribute type.
func attributeTypeForKey(key string) (AttributeType, bool) {
	switch key {
	case "CN":
		return AttrCommonName, true
	case "O":
		return AttrOrganization, true
	case "C":
		return AttrCountry, true
	}
	return 0, false
}

// AttributeTypeAndValue is a single (type, value) pair in a distinguished
// name.
type AttributeTypeAndValue struct {
	Type  AttributeType
	Value string
}

// Name is an ordered distinguished name. Order is preserved from parse
// through encoding; two Names are the same identity for chain-walking
// purposes exactly when their String() forms are equal.
type Name []AttributeTypeAndValue

// ParseName parses a comma-separated key=value DN string such as
// "CN=Example Root,O=Example,C=DE". Unrecognized or malformed pairs are
// silently dropped, which can yield an empty Name; callers that need the
// drops surfaced use ParseNameStrict instead.
func ParseName(s string) Name {
	name, _ := parseName(s, false)
	return name
}

// ParseNameStrict parses a DN string like ParseName but returns an error
// for the first unrecognized or malformed pair instead of dropping it.
func ParseNameStrict(s string) (Name, error) {
	return parseName(s, true)
}

func parseName(s string, strict bool) (Name, error) {
	var name Name
	if strings.TrimSpace(s) == "" {
		return name, nil
	}

	for _, part := range strings.Split(s, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			if strict {
				return nil, fmt.Errorf("%w: malformed pair %q", ErrUnknownAttribute, part)
			}
			continue
		}
		attrType, ok := attributeTypeForKey(strings.TrimSpace(key))
		if !ok {
			if strict {
				return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, strings.TrimSpace(key))
			}
			continue
		}
		name = append(name, AttributeTypeAndValue{Type: attrType, Value: strings.TrimSpace(value)})
	}
	return name, nil
}

// String renders the name back to its comma-separated key=value form.
func (n Name) String() string {
	parts := make([]string, 0, len(n))
	for _, atv := range n {
		parts = append(parts, atv.Type.String()+"="+atv.Value)
	}
	return strings.Join(parts, ",")
}

// Empty reports whether the name carries no attributes.
func (n Name) Empty() bool {
	return len(n) == 0
}

// FromPKIXName converts a parsed pkix.Name to a Name, keeping only the
// supported CN/O/C attributes in CN, O, C order.
func FromPKIXName(name pkix.Name) Name {
	var n Name
	if name.CommonName != "" {
		n = append(n, AttributeTypeAndValue{Type: AttrCommonName, Value: name.CommonName})
	}
	if len(name.Organization) > 0 {
		n = append(n, AttributeTypeAndValue{Type: AttrOrganization, Value: name.Organization[0]})
	}
	if len(name.Country) > 0 {
		n = append(n, AttributeTypeAndValue{Type: AttrCountry, Value: name.Country[0]})
	}
	return n
}

// EncodeName serializes a Name as an X.501 RDNSequence: a SEQUENCE of
// single-valued SETs, each holding one SEQUENCE{OID, PrintableString}.
func EncodeName(n Name) ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, atv := range n {
			b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(atv.Type.OID())
					b.AddASN1(cryptobyte_asn1.PrintableString, func(b *cryptobyte.Builder) {
						b.AddBytes([]byte(atv.Value))
					})
				})
			})
		}
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode name %q: %w", n.String(), err)
	}
	return der, nil
}
