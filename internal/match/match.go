// Package match picks the release asset best suited to the host platform.
//
// Asset filenames are free-form and publisher-controlled, so selection is
// score-based rather than pattern-based: platform alias tokens add points,
// known-irrelevant files (checksums, signatures, packages for other package
// managers) are pushed out of contention, and ties fall back to cheap
// heuristics. The exact constants are tunable and covered by table tests.
package match

import (
	"fmt"
	"strings"

	"github.com/matze/binge/internal/github"
	"github.com/matze/binge/internal/platform"
)

const (
	osScore   = 2
	archScore = 2

	// packagePenalty pushes package-manager artifacts below every ordinary
	// candidate while keeping them selectable when nothing else is offered.
	packagePenalty = -1000
)

// metadataSuffixes mark assets that are never installable: checksums,
// signatures, SBOMs, debug info, docs, editor packages.
var metadataSuffixes = []string{
	".sha256", ".sha512", ".sha1", ".md5", ".sum", ".sums",
	".sig", ".asc", ".minisig", ".pem", ".pub", ".sigstore",
	".sbom", ".spdx", ".spdx.json", ".intoto.jsonl", ".att",
	".txt", ".md", ".json", ".yaml", ".yml",
	".debug", ".dwp",
	".vsix",
}

// metadataMarkers catch checksum manifests published without an extension,
// e.g. "SHA256SUMS" or "fd_checksums".
var metadataMarkers = []string{"checksum", "sha256sums", "sha512sums"}

// packageSuffixes mark artifacts aimed at a package manager or a foreign
// platform. They stay eligible as a last resort: some projects publish
// nothing else, and downloading one is at worst useless, never unsafe.
var packageSuffixes = []string{
	".deb", ".rpm", ".apk", ".snap", ".flatpak",
	".pkg.tar.zst", ".pkg.tar.xz",
	".msi", ".exe", ".dmg", ".pkg",
}

// staticMarkers break score ties in favor of statically linked builds, which
// run on more hosts than their glibc siblings.
var staticMarkers = []string{"musl", "static"}

// NoMatchError reports that no asset in a release is installable on the host
// platform. It lists the names considered so the user can see what was on
// offer.
type NoMatchError struct {
	Platform platform.Descriptor
	Assets   []string
}

func (e *NoMatchError) Error() string {
	if len(e.Assets) == 0 {
		return fmt.Sprintf("release has no assets to match against %s", e.Platform)
	}
	return fmt.Sprintf("no asset matches %s; release offers: %s",
		e.Platform, strings.Join(e.Assets, ", "))
}

type candidate struct {
	asset  github.Asset
	score  int
	static bool
}

// Select scores every asset against the platform descriptor and returns the
// single best candidate. Assets scoring at or below zero lose to any
// positive-scoring candidate but remain eligible when none exists; metadata
// files are never eligible. Returns a *NoMatchError when the list is empty
// or nothing is eligible.
func Select(assets []github.Asset, p platform.Descriptor) (github.Asset, error) {
	var (
		best    candidate
		haveAny bool
	)

	for _, a := range assets {
		name := strings.ToLower(a.Name)
		if isMetadata(name) {
			continue
		}

		c := candidate{asset: a, static: hasAnyToken(name, staticMarkers)}
		if hasAnyToken(name, p.OSAliases()) {
			c.score += osScore
		}
		if hasAnyToken(name, p.ArchAliases()) {
			c.score += archScore
		}
		if hasAnySuffix(name, packageSuffixes) {
			c.score += packagePenalty
		}

		if !haveAny || better(c, best) {
			best, haveAny = c, true
		}
	}

	if !haveAny {
		names := make([]string, 0, len(assets))
		for _, a := range assets {
			names = append(names, a.Name)
		}
		return github.Asset{}, &NoMatchError{Platform: p, Assets: names}
	}

	return best.asset, nil
}

// better reports whether a should be preferred over b. Ties prefer static
// builds, then shorter names (fewer decorations), then first-seen order: a
// strict inequality everywhere keeps the scan stable.
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.static != b.static {
		return a.static
	}
	return len(a.asset.Name) < len(b.asset.Name)
}

func isMetadata(name string) bool {
	if hasAnySuffix(name, metadataSuffixes) {
		return true
	}
	for _, m := range metadataMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	// Source archives: "src"/"source" as a delimited token, e.g.
	// "tool-1.2-src.tar.gz".
	return hasAnyToken(name, []string{"src", "source"})
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func hasAnyToken(name string, tokens []string) bool {
	for _, tok := range tokens {
		if hasToken(name, tok) {
			return true
		}
	}
	return false
}

// hasToken reports whether tok occurs in name delimited by '-', '_', '.' or
// the string boundaries. The token itself may contain delimiters ("x86_64"),
// so only its outer edges are checked.
func hasToken(name, tok string) bool {
	for start := 0; start+len(tok) <= len(name); {
		i := strings.Index(name[start:], tok)
		if i < 0 {
			return false
		}
		i += start
		j := i + len(tok)
		if (i == 0 || isDelim(name[i-1])) && (j == len(name) || isDelim(name[j])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isDelim(b byte) bool {
	return b == '-' || b == '_' || b == '.'
}
