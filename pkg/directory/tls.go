package directory

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	tlsMu    sync.Mutex
	tlsDir   string
	tlsRoots *x509.CertPool
)

// InitTLSCACertDir loads the PEM certificates under dir into the trust
// store every later ldaps connection verifies against. The store is
// process wide and can only be pointed at one directory; calling again
// with the same directory is a no-op, with a different one an error.
// An empty dir leaves the system roots in charge.
func InitTLSCACertDir(dir string) error {
	if dir == "" {
		return nil
	}

	tlsMu.Lock()
	defer tlsMu.Unlock()
	if tlsDir != "" {
		if tlsDir == dir {
			return nil
		}
		return errors.Errorf("CA certificate directory already set to %s, cannot change it to %s", tlsDir, dir)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "could not read CA certificate directory %s", dir)
	}
	pool := x509.NewCertPool()
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		path := filepath.Join(dir, f.Name())
		pem, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).Warnf("skipping unreadable CA certificate %s", path)
			continue
		}
		if !pool.AppendCertsFromPEM(pem) {
			log.Warnf("no usable certificates in %s", path)
		}
	}

	tlsDir = dir
	tlsRoots = pool
	log.Debugf("trusting CA certificates from %s", dir)
	return nil
}

func trustedRoots() *x509.CertPool {
	tlsMu.Lock()
	defer tlsMu.Unlock()
	return tlsRoots
}
