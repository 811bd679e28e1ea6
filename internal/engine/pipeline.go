package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matze/binge/internal/archive"
	"github.com/matze/binge/internal/github"
	"github.com/matze/binge/internal/logging"
	"github.com/matze/binge/internal/match"
)

// tempPrefix marks in-progress files inside the install directory. They
// become visible under their final name only through an atomic rename.
const tempPrefix = ".binge-"

// tempMaxAge is how old a leftover temp file must be before SweepTemp
// removes it. Younger files may belong to a concurrently running binge.
const tempMaxAge = time.Hour

// payload is one matched, opened, extraction-ready asset. Closing it
// releases the decompression stages and the underlying download stream.
type payload struct {
	exe   *archive.Executable
	src   io.ReadCloser
	asset github.Asset
}

func (p *payload) Close() error {
	err := p.exe.Close()
	if cerr := p.src.Close(); err == nil {
		err = cerr
	}
	return err
}

// download matches an asset from rel against the host platform, opens its
// byte stream, sniffs the format from name plus leading magic bytes, and
// sets up streaming extraction. No archive data is buffered beyond the
// peek window and whatever the container stage itself requires.
func (e *Engine) download(ctx context.Context, rel *github.Release, hints []string) (*payload, error) {
	asset, err := match.Select(rel.Assets, e.platform)
	if err != nil {
		return nil, err
	}
	logging.Debug("matched asset", "asset", asset.Name, "platform", e.platform)

	src, err := e.client.OpenAsset(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", asset.Name, err)
	}

	br := bufio.NewReaderSize(src, 32<<10)
	peek, err := br.Peek(archive.PeekSize)
	if err != nil && !errors.Is(err, io.EOF) {
		src.Close()
		return nil, fmt.Errorf("reading %s: %w", asset.Name, err)
	}

	format := archive.Detect(asset.Name, peek)
	logging.Debug("detected format", "asset", asset.Name, "format", format)

	exe, err := archive.Extract(format, br, hints)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("extracting %s: %w", asset.Name, err)
	}
	return &payload{exe: exe, src: src, asset: asset}, nil
}

// placeFile streams r into dir under a temporary name, marks it
// executable, and renames it to name. An interrupted copy leaves only a
// prefixed temp file, never a truncated binary at the final path.
func placeFile(dir, name string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(dir, tempPrefix+name+"-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("marking %s executable: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("installing %s: %w", dst, err)
	}
	return dst, nil
}

// SweepTemp removes stale temp files an interrupted run left behind in the
// install directory. Failures are logged and otherwise ignored; sweeping
// is best-effort hygiene.
func SweepTemp(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-tempMaxAge)
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), tempPrefix) {
			continue
		}
		info, err := ent.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		if err := os.Remove(path); err != nil {
			logging.Debug("could not sweep temp file", "path", path, "err", err)
		} else {
			logging.Debug("swept stale temp file", "path", path)
		}
	}
}

// hints drops empty name hints so the extractor only sees real ones.
func hints(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
