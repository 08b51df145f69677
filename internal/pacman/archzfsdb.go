package pacman

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

// DBClient downloads and parses an archzfs-style repository database: a
// compressed tar with one directory per package holding a desc key/value
// file. It exists because the local pacman index may not have the archzfs
// repository configured at all.
type DBClient struct {
	URL         string
	KeyringPath string // optional armored public key; enables .sig verification
	HTTPClient  *http.Client
}

// NewDBClient builds a client for the database at url.
func NewDBClient(url, keyringPath string) *DBClient {
	return &DBClient{URL: url, KeyringPath: keyringPath, HTTPClient: http.DefaultClient}
}

// PackageVersion returns the version recorded in the database for an exact
// package name, or ok=false. All failures (transport, decompression, a
// missing entry, a bad signature) are reported as absent, never as errors.
func (c *DBClient) PackageVersion(name string) (string, bool) {
	log := logger.Logger()

	raw, err := c.download(c.URL)
	if err != nil {
		log.Debugf("Failed to download archzfs database: %v", err)
		return "", false
	}

	if c.KeyringPath != "" {
		if err := c.verifySignature(raw); err != nil {
			log.Warnf("archzfs database signature verification failed: %v", err)
			return "", false
		}
	}

	version, err := findPackageVersion(raw, name)
	if err != nil {
		log.Debugf("Failed to parse archzfs database: %v", err)
		return "", false
	}
	if version == "" {
		log.Debugf("Package %s not found in archzfs database", name)
		return "", false
	}

	log.Debugf("Found %s version from archzfs database: %s", name, version)
	return version, true
}

func (c *DBClient) download(url string) ([]byte, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// verifySignature checks the database's detached PGP signature against the
// configured keyring.
func (c *DBClient) verifySignature(db []byte) error {
	keyringBytes, err := os.ReadFile(c.KeyringPath)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(keyringBytes))
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	sig, err := c.download(c.URL + ".sig")
	if err != nil {
		return fmt.Errorf("failed to download signature: %w", err)
	}

	_, err = openpgp.CheckDetachedSignature(
		openpgp.EntityList(keyring),
		bytes.NewReader(db),
		bytes.NewReader(sig),
		&packet.Config{},
	)
	if err != nil {
		return fmt.Errorf("signature check failed: %w", err)
	}
	return nil
}

// decompress sniffs the archive's magic bytes and returns a plain tar
// stream. Repository databases show up as xz, zstd, gzip or bare tar
// depending on the mirror's repo-add settings.
func decompress(raw []byte) (io.Reader, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return xz.NewReader(bytes.NewReader(raw))
	case bytes.HasPrefix(raw, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case bytes.HasPrefix(raw, []byte{0x1f, 0x8b}):
		return gzip.NewReader(bytes.NewReader(raw))
	default:
		return bytes.NewReader(raw), nil
	}
}

func findPackageVersion(raw []byte, name string) (string, error) {
	stream, err := decompress(raw)
	if err != nil {
		return "", fmt.Errorf("decompressing database: %w", err)
	}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("reading database archive: %w", err)
		}

		// Entries look like "<name>-<ver>-<rel>/desc".
		if hdr.Typeflag == tar.TypeDir || !strings.HasSuffix(hdr.Name, "/desc") {
			continue
		}
		dir := strings.TrimSuffix(hdr.Name, "/desc")
		if !strings.HasPrefix(dir, name+"-") {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return "", fmt.Errorf("reading desc for %s: %w", dir, err)
		}

		fields := parseDesc(string(content))
		// The dir prefix alone would also match e.g. zfs-linux-lts when
		// asked for zfs-linux, so confirm against the recorded name.
		if fields["NAME"] != name {
			continue
		}
		return fields["VERSION"], nil
	}
}

// parseDesc reads the repo-add desc format: %SECTION% headers each followed
// by value lines. Only the first value of each section is kept, which is all
// the lookups here need.
func parseDesc(content string) map[string]string {
	fields := make(map[string]string)
	section := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") {
			section = strings.Trim(line, "%")
			continue
		}
		if section != "" && line != "" {
			if _, seen := fields[section]; !seen {
				fields[section] = line
			}
		}
	}
	return fields
}
