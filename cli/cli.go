// Package cli provides the command-line interface for certificate
// creation, trust-pool inspection and chain resolution.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "newca":
		NewCACommand(args)
	case "issue":
		IssueCommand(args)
	case "chain":
		ChainCommand(args)
	case "pool":
		PoolCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("gopki - certificate creation and chain resolution tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  newca    Create a self-signed root CA certificate")
	fmt.Println("  issue    Issue an intermediate or user certificate from a CA")
	fmt.Println("  chain    Resolve the certificate chain for a leaf certificate")
	fmt.Println("  pool     Load the trust pool and report its contents")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s newca -dn \"CN=Example Root,O=Example,C=DE\" -out root.pem -keyout root.key\n", os.Args[0])
	fmt.Printf("  %s issue -ca root.pem -cakey root.key -dn \"CN=Signer\" -serial 2 -out signer.pem -keyout signer.key\n", os.Args[0])
	fmt.Printf("  %s chain -dirs certs signer.pem\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("gopki version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}

// fail prints an error message and exits.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	osExit(1)
}
