package archive

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrNoExecutable is returned when an archive contains no entry that looks
// like the wanted binary.
var ErrNoExecutable = errors.New("no executable found in archive")

// UnsafeEntryError is returned when an archive entry tries to escape the
// extraction root, e.g. via "../" segments or an absolute path. One unsafe
// entry abandons the whole extraction.
type UnsafeEntryError struct {
	Path string
}

func (e *UnsafeEntryError) Error() string {
	return fmt.Sprintf("unsafe archive entry %q escapes the extraction root", e.Path)
}

// Executable streams the selected entry's bytes out of an asset stream.
// Name is the entry's base name inside the archive ("" for raw payloads);
// Mode is the mode recorded there (0o755 when the stream carries none).
// Close releases decompressors and any temp spool backing the stream.
type Executable struct {
	Name string
	Mode fs.FileMode

	r        io.Reader
	cleanups []func() error
}

func (e *Executable) Read(p []byte) (int, error) {
	return e.r.Read(p)
}

// Close runs the accumulated cleanups in reverse order, keeping the first
// error.
func (e *Executable) Close() error {
	var first error
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		if err := e.cleanups[i](); err != nil && first == nil {
			first = err
		}
	}
	e.cleanups = nil
	return first
}

// Extract unwraps src following the format chain and returns a stream over
// the executable inside. Decompression layers are composed as nested
// readers; containers are walked lazily. The executable entry is the first
// regular file that has an executable bit set or whose base name matches one
// of the hints case-insensitively; when neither rule fires, an archive
// holding exactly one regular file falls back to that file.
func Extract(f *Format, src io.Reader, hints []string) (*Executable, error) {
	r := src
	var cleanups []func() error
	abort := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]() //nolint:errcheck
		}
	}

	for cur := f; cur != nil; cur = cur.Next {
		switch cur.Kind {
		case Raw:
			return &Executable{Mode: 0o755, r: r, cleanups: cleanups}, nil

		case Gzip:
			zr, err := gzip.NewReader(r)
			if err != nil {
				abort()
				return nil, fmt.Errorf("gzip: %w", err)
			}
			cleanups = append(cleanups, zr.Close)
			r = zr

		case Zstd:
			zr, err := zstd.NewReader(r)
			if err != nil {
				abort()
				return nil, fmt.Errorf("zstd: %w", err)
			}
			cleanups = append(cleanups, func() error { zr.Close(); return nil })
			r = zr

		case Xz:
			xr, err := xz.NewReader(r)
			if err != nil {
				abort()
				return nil, fmt.Errorf("xz: %w", err)
			}
			r = xr

		case Tar:
			exe, err := extractTar(r, hints, cleanups)
			if err != nil {
				abort()
				return nil, err
			}
			return exe, nil

		case Zip:
			exe, err := extractZip(r, hints, cleanups)
			if err != nil {
				abort()
				return nil, err
			}
			return exe, nil
		}
	}

	// The chain ended on a compression layer: the decompressed stream is the
	// executable itself.
	return &Executable{Mode: 0o755, r: r, cleanups: cleanups}, nil
}

// extractTar walks the tar stream entry by entry. Matching entries are
// streamed straight out of the tar reader. The sole-regular-file fallback
// needs one tentative spool: a forward-only stream cannot rewind to the
// first file once the end of the archive proves it was alone.
func extractTar(r io.Reader, hints []string, cleanups []func() error) (*Executable, error) {
	tr := tar.NewReader(r)

	var (
		spool     *os.File
		spoolName string
		spoolMode fs.FileMode
		regulars  int
	)
	dropSpool := func() {
		if spool != nil {
			name := spool.Name()
			spool.Close()
			os.Remove(name)
			spool = nil
		}
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropSpool()
			return nil, fmt.Errorf("tar: %w", err)
		}

		if err := checkEntryPath(hdr.Name); err != nil {
			dropSpool()
			return nil, err
		}

		switch hdr.Typeflag {
		case tar.TypeSymlink, tar.TypeLink:
			if err := checkLinkTarget(hdr.Name, hdr.Linkname); err != nil {
				dropSpool()
				return nil, err
			}
			continue
		case tar.TypeReg:
		default:
			// Directories and special entries are never candidates.
			continue
		}

		regulars++
		mode := hdr.FileInfo().Mode()
		if mode&0o111 != 0 || matchesHint(hdr.Name, hints) {
			if spool != nil {
				cleanups = append(cleanups, removeFileFunc(spool))
			}
			return &Executable{
				Name:     path.Base(hdr.Name),
				Mode:     mode,
				r:        tr,
				cleanups: cleanups,
			}, nil
		}

		switch {
		case regulars == 1:
			f, err := spoolEntry(tr)
			if err != nil {
				return nil, err
			}
			spool, spoolName, spoolMode = f, path.Base(hdr.Name), mode
		case spool != nil:
			// A second regular file voids the sole-file fallback.
			dropSpool()
		}
	}

	if regulars == 1 && spool != nil {
		if _, err := spool.Seek(0, io.SeekStart); err != nil {
			dropSpool()
			return nil, fmt.Errorf("rewinding spool: %w", err)
		}
		cleanups = append(cleanups, removeFileFunc(spool))
		return &Executable{Name: spoolName, Mode: spoolMode, r: spool, cleanups: cleanups}, nil
	}

	dropSpool()
	return nil, ErrNoExecutable
}

// extractZip spools the stream to disk (the zip directory sits at the end
// of the file, so random access is unavoidable), then streams the selected
// entry through its per-entry reader. Peak memory stays bounded regardless
// of archive size.
func extractZip(r io.Reader, hints []string, cleanups []func() error) (*Executable, error) {
	spool, err := os.CreateTemp("", "binge-zip-*")
	if err != nil {
		return nil, fmt.Errorf("spooling zip: %w", err)
	}
	drop := func() {
		spool.Close()
		os.Remove(spool.Name())
	}

	size, err := io.Copy(spool, r)
	if err != nil {
		drop()
		return nil, fmt.Errorf("spooling zip: %w", err)
	}

	zr, err := zip.NewReader(spool, size)
	if err != nil {
		drop()
		return nil, fmt.Errorf("zip: %w", err)
	}

	var (
		chosen   *zip.File
		sole     *zip.File
		regulars int
	)
	for _, f := range zr.File {
		if err := checkEntryPath(f.Name); err != nil {
			drop()
			return nil, err
		}
		if !f.FileInfo().Mode().IsRegular() {
			continue
		}
		regulars++
		if chosen == nil && (f.FileInfo().Mode()&0o111 != 0 || matchesHint(f.Name, hints)) {
			chosen = f
		}
		if regulars == 1 {
			sole = f
		}
	}
	if chosen == nil && regulars == 1 {
		chosen = sole
	}
	if chosen == nil {
		drop()
		return nil, ErrNoExecutable
	}

	rc, err := chosen.Open()
	if err != nil {
		drop()
		return nil, fmt.Errorf("zip entry %s: %w", chosen.Name, err)
	}

	cleanups = append(cleanups, removeFileFunc(spool), rc.Close)
	return &Executable{
		Name:     path.Base(chosen.Name),
		Mode:     chosen.FileInfo().Mode(),
		r:        rc,
		cleanups: cleanups,
	}, nil
}

// spoolEntry copies the current tar entry to a temp file for the sole-file
// fallback.
func spoolEntry(tr *tar.Reader) (*os.File, error) {
	f, err := os.CreateTemp("", "binge-extract-*")
	if err != nil {
		return nil, fmt.Errorf("spooling entry: %w", err)
	}
	if _, err := io.Copy(f, tr); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("spooling entry: %w", err)
	}
	return f, nil
}

func removeFileFunc(f *os.File) func() error {
	return func() error {
		err := f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
			err = rmErr
		}
		return err
	}
}

// checkEntryPath rejects absolute paths and any path that climbs out of the
// archive root once cleaned. Every entry is checked, candidate or not: a
// hostile archive fails as a whole.
func checkEntryPath(name string) error {
	if path.IsAbs(name) {
		return &UnsafeEntryError{Path: name}
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return &UnsafeEntryError{Path: name}
	}
	return nil
}

// checkLinkTarget rejects symlinks and hardlinks whose target resolves
// outside the archive root.
func checkLinkTarget(name, linkname string) error {
	if path.IsAbs(linkname) {
		return &UnsafeEntryError{Path: linkname}
	}
	resolved := path.Join(path.Dir(path.Clean(name)), linkname)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return &UnsafeEntryError{Path: linkname}
	}
	return nil
}

func matchesHint(entryName string, hints []string) bool {
	base := strings.ToLower(path.Base(entryName))
	for _, h := range hints {
		if h != "" && base == strings.ToLower(h) {
			return true
		}
	}
	return false
}
