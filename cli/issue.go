package cli

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/georgepadayatti/gopki/asn1der"
	"github.com/georgepadayatti/gopki/certgen"
	"github.com/georgepadayatti/gopki/keys"
)

// IssueOptions contains options for the issue command.
type IssueOptions struct {
	CACert   string
	CAKey    string
	DN       string
	Serial   int64
	CertType string
	CRLURLs  string
	OCSPURLs string
	Bits     int
	Days     int
	Years    int
	CertOut  string
	KeyOut   string
}

// IssueCommand implements the 'issue' command.
func IssueCommand(args []string) {
	issueFlags := flag.NewFlagSet("issue", flag.ExitOnError)

	var opts IssueOptions

	issueFlags.StringVar(&opts.CACert, "ca", "", "Issuing CA certificate file (PEM or DER)")
	issueFlags.StringVar(&opts.CAKey, "cakey", "", "Issuing CA private key file (PEM)")
	issueFlags.StringVar(&opts.DN, "dn", "", "Subject DN, e.g. \"CN=Signer,O=Example,C=DE\"")
	issueFlags.Int64Var(&opts.Serial, "serial", 0, "Serial number for the new certificate")
	issueFlags.StringVar(&opts.CertType, "type", "user", "Certificate type: user, intermediate")
	issueFlags.StringVar(&opts.CRLURLs, "crl", "", "Comma-separated CRL distribution point URLs")
	issueFlags.StringVar(&opts.OCSPURLs, "ocsp", "", "Comma-separated OCSP responder URLs")
	issueFlags.IntVar(&opts.Bits, "bits", keys.DefaultKeyBits, "RSA key size in bits")
	issueFlags.IntVar(&opts.Days, "days", certgen.DefaultUserValidityDays, "Validity in days (user certificates)")
	issueFlags.IntVar(&opts.Years, "years", certgen.DefaultIntermediateValidityYears, "Validity in years (intermediate certificates)")
	issueFlags.StringVar(&opts.CertOut, "out", "cert.pem", "Output file for the certificate")
	issueFlags.StringVar(&opts.KeyOut, "keyout", "cert.key", "Output file for the private key")

	issueFlags.Usage = func() {
		fmt.Printf("Usage: %s issue [options]\n\n", os.Args[0])
		fmt.Println("Issue an intermediate or user certificate from a CA.")
		fmt.Println("")
		fmt.Println("Options:")
		issueFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s issue -ca root.pem -cakey root.key -dn \"CN=Signer\" -serial 2\n", os.Args[0])
		fmt.Printf("  %s issue -type intermediate -ca root.pem -cakey root.key -dn \"CN=Sub CA\" -serial 3 -crl http://crl.example.com/ca.crl\n", os.Args[0])
	}

	if err := issueFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}

	if opts.CACert == "" || opts.CAKey == "" {
		fail("issuing CA certificate and key are required (-ca, -cakey)")
		return
	}
	if opts.DN == "" {
		fail("a subject DN is required (-dn)")
		return
	}
	if opts.Serial <= 0 {
		fail("a positive serial number is required (-serial)")
		return
	}

	subjectDN, err := asn1der.ParseNameStrict(opts.DN)
	if err != nil {
		fail("invalid DN %q: %v", opts.DN, err)
		return
	}

	caCerts, err := keys.LoadCertsFromPemDer(opts.CACert)
	if err != nil {
		fail("failed to load CA certificate: %v", err)
		return
	}
	issuerDN := asn1der.FromPKIXName(caCerts[0].Subject)

	issuerKP, err := keys.LoadPrivateKeyFromPem(opts.CAKey)
	if err != nil {
		fail("failed to load CA private key: %v", err)
		return
	}

	kp, err := keys.GenerateKeyPair(nil, opts.Bits)
	if err != nil {
		fail("%v", err)
		return
	}

	serial := big.NewInt(opts.Serial)
	crlURLs := splitURLList(opts.CRLURLs)
	ocspURLs := splitURLList(opts.OCSPURLs)

	factory := certgen.NewFactory()

	var cert *certgen.Certificate
	switch opts.CertType {
	case "user":
		cert, err = factory.NewUserCertificate(kp, issuerKP, subjectDN, issuerDN, serial, crlURLs, ocspURLs, opts.Days)
	case "intermediate":
		cert, err = factory.NewIntermediateCertificate(kp, issuerKP, subjectDN, issuerDN, serial, crlURLs, ocspURLs, opts.Years)
	default:
		fail("unknown certificate type %q (expected user or intermediate)", opts.CertType)
		return
	}
	if err != nil {
		fail("%v", err)
		return
	}

	if err := writeFiles(cert, kp, opts.CertOut, opts.KeyOut); err != nil {
		fail("%v", err)
		return
	}

	fmt.Printf("Issued %s certificate %q (serial %d)\n", opts.CertType, subjectDN.String(), opts.Serial)
	fmt.Printf("  certificate: %s\n", opts.CertOut)
	fmt.Printf("  private key: %s\n", opts.KeyOut)
}

// splitURLList splits a comma-separated URL list, dropping empty entries.
func splitURLList(s string) []string {
	if s == "" {
		return nil
	}
	var urls []string
	for _, url := range strings.Split(s, ",") {
		url = strings.TrimSpace(url)
		if url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}
