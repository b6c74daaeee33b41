package truststore

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/georgepadayatti/gopki/keys"
)

// DefaultMaxParentDepth bounds how many ancestor directories are probed
// when a configured directory does not resolve from the working directory.
const DefaultMaxParentDepth = 3

// certFileExtensions are the file extensions considered during directory
// scans, compared case-insensitively.
var certFileExtensions = map[string]bool{
	".der": true,
	".cer": true,
	".crt": true,
	".pem": true,
}

var errNoCertificateBlocks = errors.New("no certificate blocks in PEM data")

// Loader builds a certificate pool from trust directories and additional
// providers. Per-file parse failures are recorded as skip diagnostics and
// never abort the load; provider failures (for example a missing keystore
// file) are fatal and surface to the caller.
type Loader struct {
	// Dirs are the trust directories to scan.
	Dirs []string

	// MaxParentDepth bounds the upward ancestor search for directories
	// that do not resolve as given. Zero uses DefaultMaxParentDepth.
	MaxParentDepth int

	// Providers contribute additional trust anchors to the pool.
	Providers []Provider

	// Logger receives per-file skip diagnostics at debug level. Nil uses
	// the standard logger.
	Logger *logrus.Logger
}

// Load scans the configured directories and providers into a pool.
// Directory scans fan out one task per candidate file and fan in to the
// pool; parse-failure isolation holds per task.
func (l *Loader) Load() (*Pool, error) {
	log := l.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	pool := NewPool()

	var files []string
	for _, dir := range l.Dirs {
		resolved, ok := l.resolveDir(dir)
		if !ok {
			log.WithField("dir", dir).Debug("trust directory not found, skipping")
			continue
		}
		dirFiles, err := listCertFiles(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trust directory %s: %w", resolved, err)
		}
		files = append(files, dirFiles...)
	}

	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			certs, err := parseCertFile(path)
			if err != nil {
				pool.AddSkipped(path, err)
				log.WithField("file", path).WithError(err).Debug("skipping unparseable certificate file")
				return
			}
			pool.Add(certs...)
		}(file)
	}
	wg.Wait()

	for _, provider := range l.Providers {
		ders, err := provider.TrustedRootDERs()
		if err != nil {
			return nil, err
		}
		for _, der := range ders {
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				pool.AddSkipped("(provider)", err)
				log.WithError(err).Debug("skipping unparseable provider certificate")
				continue
			}
			pool.Add(cert)
		}
	}

	return pool, nil
}

// resolveDir resolves a trust directory path. The path is tried as given;
// if it does not exist, <ancestor>/<path> is probed for each ancestor of
// the working directory up to MaxParentDepth levels. This supports
// invocation from nested working directories without absolute paths.
func (l *Loader) resolveDir(dir string) (string, bool) {
	if dirExists(dir) {
		return dir, true
	}
	if filepath.IsAbs(dir) {
		return "", false
	}

	maxDepth := l.MaxParentDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxParentDepth
	}

	ancestor := ".."
	for depth := 0; depth < maxDepth; depth++ {
		candidate := filepath.Join(ancestor, dir)
		if dirExists(candidate) {
			return candidate, true
		}
		ancestor = filepath.Join(ancestor, "..")
	}
	return "", false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// listCertFiles recursively lists certificate files under dir. Symlinks
// are not followed; extension matching is case-insensitive.
func listCertFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if certFileExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// parseCertFile parses one candidate file into certificates. PEM content
// is detected by extension or by a BEGIN CERTIFICATE marker in the raw
// bytes; PEM files may hold multiple concatenated certificate blocks.
// Anything else is treated as a single DER certificate. Any parse error
// drops the whole file.
func parseCertFile(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	isPEM := strings.EqualFold(filepath.Ext(path), ".pem") ||
		bytes.Contains(data, []byte("BEGIN CERTIFICATE"))
	if !isPEM {
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, err
		}
		return []*x509.Certificate{cert}, nil
	}

	var certs []*x509.Certificate
	rest := data
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errNoCertificateBlocks
	}
	return certs, nil
}

// LoadPEMData is a convenience for merging raw PEM data (for example the
// extra signer certificates handed to chain building) into a pool.
func LoadPEMData(pool *Pool, data []byte) error {
	certs, err := keys.LoadCertsFromPemDerData(data)
	if err != nil {
		return err
	}
	pool.Add(certs...)
	return nil
}
