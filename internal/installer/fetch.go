package installer

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/npm"
)

// ErrIntegrity is returned when a downloaded tarball does not match the
// digest the registry published for it.
var ErrIntegrity = errors.New("integrity check failed")

const maxTarballBytes = 512 << 20

// TarballFetcher downloads a version's dist tarball, checks its digest and
// unpacks it.
type TarballFetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewTarballFetcher returns a fetcher using hc, or a client with a five
// minute timeout when hc is nil.
func NewTarballFetcher(hc *http.Client) *TarballFetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &TarballFetcher{httpClient: hc, userAgent: branding.CLIName() + "-cli"}
}

// Fetch downloads v.Dist.Tarball and extracts it into dest. The archive is
// streamed through the digest while it is unpacked; a mismatch is reported
// after extraction and the caller discards dest.
func (f *TarballFetcher) Fetch(ctx context.Context, v npm.VersionDetails, dest string) error {
	if v.Dist.Tarball == "" {
		return fmt.Errorf("%s@%s has no tarball url", v.Name, v.Version)
	}
	check, err := newDigest(v.Dist)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.Dist.Tarball, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", v.Dist.Tarball, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxTarballBytes)
	if check != nil {
		body = io.TeeReader(body, check.h)
	}
	if err := extractTarGz(body, dest); err != nil {
		return err
	}
	// Drain trailing padding so the digest covers the whole file.
	if _, err := io.Copy(io.Discard, body); err != nil {
		return fmt.Errorf("reading download stream: %w", err)
	}

	if check != nil {
		if err := check.verify(); err != nil {
			return fmt.Errorf("%s@%s: %w", v.Name, v.Version, err)
		}
	}
	return nil
}

type digest struct {
	algo string
	h    hash.Hash
	want []byte
}

// newDigest picks the strongest digest on offer: an SRI integrity string
// (sha512, sha256 or sha1), else the legacy hex sha1 shasum. No digest at all
// yields nil.
func newDigest(dist npm.Dist) (*digest, error) {
	if dist.Integrity != "" {
		var best *digest
		for _, entry := range strings.Fields(dist.Integrity) {
			algo, b64, ok := strings.Cut(entry, "-")
			if !ok {
				continue
			}
			// Strip SRI options such as "?foo".
			b64, _, _ = strings.Cut(b64, "?")
			want, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				continue
			}
			d := &digest{algo: algo, want: want}
			switch algo {
			case "sha512":
				d.h = sha512.New()
			case "sha384":
				d.h = sha512.New384()
			case "sha256":
				d.h = sha256.New()
			case "sha1":
				d.h = sha1.New()
			default:
				continue
			}
			if best == nil || strength(algo) > strength(best.algo) {
				best = d
			}
		}
		if best != nil {
			return best, nil
		}
	}
	if dist.Shasum != "" {
		want, err := hex.DecodeString(dist.Shasum)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed shasum %q", ErrIntegrity, dist.Shasum)
		}
		return &digest{algo: "sha1", h: sha1.New(), want: want}, nil
	}
	return nil, nil
}

func strength(algo string) int {
	switch algo {
	case "sha512":
		return 4
	case "sha384":
		return 3
	case "sha256":
		return 2
	}
	return 1
}

func (d *digest) verify() error {
	got := d.h.Sum(nil)
	if !bytes.Equal(got, d.want) {
		return fmt.Errorf("%w: %s mismatch", ErrIntegrity, d.algo)
	}
	return nil
}
