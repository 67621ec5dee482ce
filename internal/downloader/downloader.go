// Package downloader implements C3: a single mutex-guarded HTTP client
// that fetches a URL into a uniquely-named temp file and returns a
// PathHandle whose Close removes the file.
package downloader

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/SnakeSolid/pgrestore-web/internal/config"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
)

// Downloader serializes sequence-number allocation and the download
// itself behind one mutex: a single in-flight download at a time is
// acceptable given expected volumes and keeps temp-file naming trivial.
type Downloader struct {
	mu          sync.Mutex
	client      *http.Client
	downloadDir string
	fileSeqNo   uint64
	log         *logger.Logger
}

// New builds a Downloader from http_client configuration: it loads each
// configured PEM root certificate and applies the accept-invalid-*
// flags to exactly the matching tls.Config field. AcceptInvalidCerts and
// AcceptInvalidHostnames are kept as two distinct semantic bypasses
// rather than collapsed into one, even though both ultimately set
// InsecureSkipVerify on this client.
func New(cfg config.HTTPClientConfig, log *logger.Logger) (*Downloader, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	for _, path := range cfg.RootCertificates {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read root certificate %q: %w", path, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("root certificate %q contains no usable PEM data", path)
		}
	}

	tlsConfig := &tls.Config{
		RootCAs: pool,
		// accept_invalid_certs: skip the whole chain-of-trust check.
		InsecureSkipVerify: cfg.AcceptInvalidCerts,
	}
	if cfg.AcceptInvalidHostnames && !cfg.AcceptInvalidCerts {
		// accept_invalid_hostnames: verify the chain, but not that the
		// presented certificate's SAN matches the requested hostname.
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			certs, err := x509.ParseCertificates(bytes.Join(rawCerts, nil))
			if err != nil {
				return err
			}
			if len(certs) == 0 {
				return fmt.Errorf("no peer certificate presented")
			}
			intermediates := x509.NewCertPool()
			for _, cert := range certs[1:] {
				intermediates.AddCert(cert)
			}
			_, err = certs[0].Verify(x509.VerifyOptions{Roots: pool, Intermediates: intermediates})
			return err
		}
	}

	transport := &http.Transport{TLSClientConfig: tlsConfig}

	return &Downloader{
		client:      &http.Client{Transport: transport, Timeout: 0},
		downloadDir: cfg.DownloadDirectory,
		log:         log.With("component", "downloader"),
	}, nil
}

// Download streams the response body of a GET to url into
// <download_dir>/<seq>.temp and returns a handle owning that file. On
// any error the partial file is removed before returning.
func (d *Downloader) Download(url string) (*PathHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seq := d.fileSeqNo
	d.fileSeqNo++

	path := filepath.Join(d.downloadDir, fmt.Sprintf("%d.temp", seq))
	d.log.Info("downloading file", "url", url, "path", path)

	handle := &PathHandle{path: path, log: d.log}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("download %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		handle.Close()
		return nil, fmt.Errorf("download %q: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("create temp file %q: %w", path, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		handle.Close()
		return nil, fmt.Errorf("write temp file %q: %w", path, err)
	}

	if err := out.Close(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("close temp file %q: %w", path, err)
	}

	return handle, nil
}

// PathHandle owns a single temporary file. Callers must retain the
// handle for as long as the file is needed and call Close when done;
// Close is the only mechanism that removes the file, and is safe to
// call more than once.
type PathHandle struct {
	mu     sync.Mutex
	path   string
	closed bool
	log    *logger.Logger
}

// Path returns the filesystem path owned by this handle.
func (h *PathHandle) Path() string {
	return h.path
}

// Close removes the owned file if it still exists. Safe to call
// multiple times and safe to call even if the file was never created.
func (h *PathHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if _, err := os.Stat(h.path); err != nil {
		return nil
	}

	if err := os.Remove(h.path); err != nil {
		if h.log != nil {
			h.log.Warn("failed to remove temporary file", "path", h.path, "error", err)
		}
		return err
	}
	return nil
}
