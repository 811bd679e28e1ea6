// Package archive detects the layering of release asset streams and extracts
// the executable they carry in a single pass, without materializing the
// archive in memory.
package archive

import (
	"bytes"
	"strings"
)

// Kind is one layer an asset stream can be wrapped in.
type Kind int

const (
	Raw Kind = iota
	Gzip
	Zstd
	Xz
	Tar
	Zip
)

func (k Kind) String() string {
	switch k {
	case Raw:
		return "raw"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Xz:
		return "xz"
	case Tar:
		return "tar"
	case Zip:
		return "zip"
	}
	return "unknown"
}

// Format is a chain of layers, outermost first: a gzip-compressed tarball is
// Gzip→Tar. Compression kinds link to the layer beneath them; Tar, Zip and
// Raw terminate a chain. A nil Next after a compression kind means the
// decompressed payload is the executable itself.
type Format struct {
	Kind Kind
	Next *Format
}

func (f *Format) String() string {
	var parts []string
	for cur := f; cur != nil; cur = cur.Next {
		parts = append(parts, cur.Kind.String())
	}
	return strings.Join(parts, "+")
}

// magic signatures for the formats binge can unwrap.
var magics = []struct {
	kind Kind
	sig  []byte
}{
	{Gzip, []byte{0x1F, 0x8B}},
	{Zstd, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{Xz, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A}},
	{Zip, []byte{0x50, 0x4B, 0x03, 0x04}},
}

// PeekSize is how many leading bytes Detect wants to see. Shorter peeks are
// fine; they just limit which magics can fire.
const PeekSize = 8

// Detect determines the format chain of a stream from its filename and its
// first bytes. Suffixes are stripped outward-in (".tar.gz" is Gzip→Tar,
// ".tgz" likewise); when the name carries no recognized suffix the leading
// bytes decide; and when name and bytes disagree about the outermost layer
// the bytes win, since filenames are publisher-controlled. A stream with no
// recognizable wrapping is Raw.
func Detect(filename string, peek []byte) *Format {
	name := strings.ToLower(filename)

	var kinds []Kind
	for done := false; !done; {
		switch {
		case strings.HasSuffix(name, ".tgz"):
			kinds = append(kinds, Gzip, Tar)
			done = true
		case strings.HasSuffix(name, ".gz"):
			kinds = append(kinds, Gzip)
			name = strings.TrimSuffix(name, ".gz")
		case strings.HasSuffix(name, ".zst"):
			kinds = append(kinds, Zstd)
			name = strings.TrimSuffix(name, ".zst")
		case strings.HasSuffix(name, ".xz"):
			kinds = append(kinds, Xz)
			name = strings.TrimSuffix(name, ".xz")
		case strings.HasSuffix(name, ".tar"):
			kinds = append(kinds, Tar)
			done = true
		case strings.HasSuffix(name, ".zip"):
			kinds = append(kinds, Zip)
			done = true
		default:
			done = true
		}
	}

	mk, sniffed := magicKind(peek)
	switch {
	case !sniffed:
		// Nothing recognizable at the stream head; trust the name.
	case len(kinds) == 0:
		kinds = []Kind{mk}
	case mk == kinds[0]:
		// Name and bytes agree.
	case mk == Zip:
		// The stream is a zip no matter what the name claimed; zip archives
		// are self-contained, so the rest of the claimed chain is noise.
		kinds = []Kind{Zip}
	case kinds[0] == Tar || kinds[0] == Zip:
		// A compression magic in front of a declared container: the name
		// forgot the compression suffix ("foo.tar" that is really gzipped).
		kinds = append([]Kind{mk}, kinds...)
	default:
		// Competing compression claims for the outermost layer.
		kinds[0] = mk
	}

	return chain(kinds)
}

func chain(kinds []Kind) *Format {
	if len(kinds) == 0 {
		return &Format{Kind: Raw}
	}
	head := &Format{Kind: kinds[0]}
	cur := head
	for _, k := range kinds[1:] {
		cur.Next = &Format{Kind: k}
		cur = cur.Next
	}
	return head
}

func magicKind(peek []byte) (Kind, bool) {
	for _, m := range magics {
		if bytes.HasPrefix(peek, m.sig) {
			return m.kind, true
		}
	}
	return Raw, false
}
