package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/georgepadayatti/gopki/chains"
	"github.com/georgepadayatti/gopki/config"
	"github.com/georgepadayatti/gopki/truststore"
)

// ChainOptions contains options for the chain command.
type ChainOptions struct {
	ConfigFile  string
	Dirs        string
	ParentDepth int
	MaxDepth    int
}

// ChainCommand implements the 'chain' command.
func ChainCommand(args []string) {
	chainFlags := flag.NewFlagSet("chain", flag.ExitOnError)

	var opts ChainOptions

	chainFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file with trust sources")
	chainFlags.StringVar(&opts.Dirs, "dirs", "", "Comma-separated trust directories")
	chainFlags.IntVar(&opts.ParentDepth, "parent-depth", truststore.DefaultMaxParentDepth, "Ancestor directories to probe for relative trust paths")
	chainFlags.IntVar(&opts.MaxDepth, "depth", chains.DefaultMaxDepth, "Maximum chain resolution depth")

	chainFlags.Usage = func() {
		fmt.Printf("Usage: %s chain [options] <leaf.pem> [extra.pem...]\n\n", os.Args[0])
		fmt.Println("Resolve the certificate chain for a leaf certificate against the trust pool.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  leaf.pem    Leaf certificate (PEM format)")
		fmt.Println("  extra.pem   Optional additional signer certificates (PEM format)")
		fmt.Println("")
		fmt.Println("Options:")
		chainFlags.PrintDefaults()
	}

	if err := chainFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}

	if chainFlags.NArg() < 1 {
		chainFlags.Usage()
		osExit(1)
		return
	}

	pool, err := loadPool(opts.ConfigFile, opts.Dirs, opts.ParentDepth)
	if err != nil {
		fail("%v", err)
		return
	}

	var signerPEMs []string
	for _, file := range chainFlags.Args() {
		data, err := os.ReadFile(file)
		if err != nil {
			fail("failed to read %s: %v", file, err)
			return
		}
		signerPEMs = append(signerPEMs, string(data))
	}

	chain, err := chains.Resolve(signerPEMs, pool.Certificates(), opts.MaxDepth)
	if err != nil {
		fail("%v", err)
		return
	}

	fmt.Printf("Resolved chain of %d certificate(s):\n", len(chain))
	for i, cert := range chain {
		fmt.Printf("  %d: %s\n", i, cert.Subject.String())
	}
	if !chain.Complete() {
		fmt.Println("Warning: chain does not terminate at a self-signed root")
	}
}

// loadPool builds the trust pool from a config file or a directory list.
func loadPool(configFile, dirs string, parentDepth int) (*truststore.Pool, error) {
	if configFile != "" {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		return cfg.Trust.NewLoader(cfg.Logging.NewLogger()).Load()
	}

	loader := &truststore.Loader{MaxParentDepth: parentDepth}
	if dirs != "" {
		loader.Dirs = strings.Split(dirs, ",")
	}
	return loader.Load()
}

// PoolCommand implements the 'pool' command.
func PoolCommand(args []string) {
	poolFlags := flag.NewFlagSet("pool", flag.ExitOnError)

	var opts ChainOptions

	poolFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file with trust sources")
	poolFlags.StringVar(&opts.Dirs, "dirs", "", "Comma-separated trust directories")
	poolFlags.IntVar(&opts.ParentDepth, "parent-depth", truststore.DefaultMaxParentDepth, "Ancestor directories to probe for relative trust paths")

	poolFlags.Usage = func() {
		fmt.Printf("Usage: %s pool [options]\n\n", os.Args[0])
		fmt.Println("Load the trust pool and report its contents and skipped files.")
		fmt.Println("")
		fmt.Println("Options:")
		poolFlags.PrintDefaults()
	}

	if err := poolFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
		return
	}

	pool, err := loadPool(opts.ConfigFile, opts.Dirs, opts.ParentDepth)
	if err != nil {
		fail("%v", err)
		return
	}

	fmt.Printf("Loaded %d certificate(s)\n", pool.Len())
	for _, cert := range pool.Certificates() {
		fmt.Printf("  %s\n", cert.Subject.String())
	}

	skipped := pool.Skipped()
	if len(skipped) > 0 {
		fmt.Printf("Skipped %d file(s):\n", len(skipped))
		for _, skip := range skipped {
			fmt.Printf("  %s: %v\n", skip.Path, skip.Reason)
		}
	}
}
