package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/gopki/asn1der"
	"github.com/georgepadayatti/gopki/certgen"
	"github.com/georgepadayatti/gopki/keys"
)

// NewCAOptions contains options for the newca command.
type NewCAOptions struct {
	DN      string
	Bits    int
	Years   int
	CertOut string
	KeyOut  string
}

// NewCACommand implements the 'newca' command.
func NewCACommand(args []string) {
	caFlags := flag.NewFlagSet("newca", flag.ExitOnError)

	var opts NewCAOptions

	caFlags.StringVar(&opts.DN, "dn", "", "Subject DN, e.g. \"CN=Example Root,O=Example,C=DE\"")
	caFlags.IntVar(&opts.Bits, "bits", keys.DefaultKeyBits, "RSA key size in bits")
	caFlags.IntVar(&opts.Years, "years", certgen.DefaultRootValidityYears, "Validity period in years")
	caFlags.StringVar(&opts.CertOut, "out", "root.pem", "Output file for the CA certificate")
	caFlags.StringVar(&opts.KeyOut, "keyout", "root.key", "Output file for the CA private key")

	caFlags.Usage = func() {
		fmt.Printf("Usage: %s newca [options]\n\n", os.Args[0])
		fmt.Println("Create a self-signed root CA certificate.")
		fmt.Println("")
		fmt.Println("Options:")
		caFlags.PrintDefaults()
	}

	if err := caFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}

	if opts.DN == "" {
		fail("a subject DN is required (-dn)")
		return
	}

	dn, err := asn1der.ParseNameStrict(opts.DN)
	if err != nil {
		fail("invalid DN %q: %v", opts.DN, err)
		return
	}

	kp, err := keys.GenerateKeyPair(nil, opts.Bits)
	if err != nil {
		fail("%v", err)
		return
	}

	factory := certgen.NewFactory()
	cert, err := factory.NewRootCertificate(kp, dn, opts.Years)
	if err != nil {
		fail("%v", err)
		return
	}

	if err := writeFiles(cert, kp, opts.CertOut, opts.KeyOut); err != nil {
		fail("%v", err)
		return
	}

	fmt.Printf("Created root CA %q\n", dn.String())
	fmt.Printf("  certificate: %s\n", opts.CertOut)
	fmt.Printf("  private key: %s\n", opts.KeyOut)
}

// writeFiles writes the certificate and key PEM files. The key file is
// created with owner-only permissions.
func writeFiles(cert *certgen.Certificate, kp *keys.KeyPair, certOut, keyOut string) error {
	if err := os.WriteFile(certOut, cert.PEM(), 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(keyOut, keys.KeyToPEM(kp), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	return nil
}
