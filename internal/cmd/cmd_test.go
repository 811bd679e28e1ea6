package cmd

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/matze/binge/internal/manifest"
	"github.com/matze/binge/internal/platform"
)

// wireRelease and wireAsset mirror the GitHub API's JSON.
type wireRelease struct {
	TagName    string      `json:"tag_name"`
	Prerelease bool        `json:"prerelease"`
	Draft      bool        `json:"draft"`
	Assets     []wireAsset `json:"assets"`
}

type wireAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// fakeForge serves a minimal GitHub releases API plus asset downloads from
// one httptest server.
type fakeForge struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	releases map[string][]wireRelease
	blobs    map[string][]byte
}

func newFakeForge(t *testing.T) *fakeForge {
	t.Helper()
	f := &fakeForge{
		t:        t,
		releases: make(map[string][]wireRelease),
		blobs:    make(map[string][]byte),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeForge) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if name, ok := strings.CutPrefix(r.URL.Path, "/assets/"); ok {
		blob, ok := f.blobs[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(blob)
		return
	}

	if rest, ok := strings.CutPrefix(r.URL.Path, "/repos/"); ok {
		if ref, ok := strings.CutSuffix(rest, "/releases"); ok {
			rels, found := f.releases[ref]
			if !found {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(rels)
			return
		}
	}

	http.NotFound(w, r)
}

// addRelease registers a release of owner/repo whose single tar.gz asset
// holds an executable named exe with the given content.
func (f *fakeForge) addRelease(ref, tag, exe, content string, prerelease bool) {
	f.t.Helper()
	host, err := platform.Host()
	if err != nil {
		f.t.Fatalf("host platform: %v", err)
	}
	_, repo, _ := strings.Cut(ref, "/")
	assetName := fmt.Sprintf("%s-%s-%s-%s.tar.gz", repo, tag, host.OS, host.Arch)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[assetName] = tarGz(f.t, exe, 0o755, []byte(content))
	f.releases[ref] = append([]wireRelease{{
		TagName:    tag,
		Prerelease: prerelease,
		Assets: []wireAsset{{
			Name:               assetName,
			BrowserDownloadURL: f.srv.URL + "/assets/" + assetName,
			Size:               int64(len(f.blobs[assetName])),
		}},
	}}, f.releases[ref]...)
}

// addEmptyRelease registers a release with no assets, so matching fails.
func (f *fakeForge) addEmptyRelease(ref, tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases[ref] = append(f.releases[ref], wireRelease{TagName: tag})
}

func tarGz(t *testing.T, name string, mode int64, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	hdr := &tar.Header{Name: name, Mode: mode, Size: int64(len(content))}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// setupEnv points everything binge touches at per-test locations: config
// via $BINGE_CONFIG, manifest via $XDG_STATE_HOME, API via the fake forge.
// Returns the install directory.
func setupEnv(t *testing.T, forge *fakeForge) string {
	t.Helper()
	home := t.TempDir()
	binDir := filepath.Join(home, "bin")

	cfgPath := filepath.Join(home, "binge.toml")
	writeFile(t, cfgPath, fmt.Sprintf("install_dir = %q\n", binDir))

	t.Setenv("HOME", home)
	t.Setenv("BINGE_CONFIG", cfgPath)
	t.Setenv("BINGE_GITHUB_API", forge.srv.URL)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("GITHUB_TOKEN", "")
	return binDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// runCLI executes the command tree in-process with captured output.
func runCLI(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func loadManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	path, err := manifest.DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	m, err := manifest.NewStore(path).Load()
	if err != nil {
		t.Fatalf("loading manifest: %v", err)
	}
	return m
}

func TestInstallCommand(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	binDir := setupEnv(t, forge)

	out, err := runCLI("install", "sharkdp/fd")
	if err != nil {
		t.Fatalf("install failed: %v\noutput:\n%s", err, out)
	}

	if !strings.Contains(out, "installed sharkdp/fd v8.7.1") {
		t.Errorf("output missing install confirmation:\n%s", out)
	}

	path := filepath.Join(binDir, "fd")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("installed file: %v", err)
	}
	if string(data) != "fd binary" {
		t.Errorf("installed content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("installed mode = %v, want 0755", info.Mode().Perm())
	}

	m := loadManifest(t)
	if len(m.Binaries) != 1 {
		t.Fatalf("manifest has %d entries, want 1", len(m.Binaries))
	}
	want := manifest.Entry{Owner: "sharkdp", Repo: "fd", Name: "fd", Version: "v8.7.1", Path: path}
	if m.Binaries[0] != want {
		t.Errorf("manifest entry = %+v, want %+v", m.Binaries[0], want)
	}
}

func TestInstallCommandAlias(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("idursun/jjui", "v0.8.0", "jjui", "jjui binary", false)
	binDir := setupEnv(t, forge)

	out, err := runCLI("install", "idursun/jjui:jj")
	if err != nil {
		t.Fatalf("install failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "as jj") {
		t.Errorf("output missing alias name:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(binDir, "jj")); err != nil {
		t.Errorf("aliased file: %v", err)
	}
	if ent := loadManifest(t).FindName("jj"); ent == nil {
		t.Error("manifest has no entry named jj")
	}
}

func TestInstallCommandPrerelease(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "stable", false)
	forge.addRelease("sharkdp/fd", "v9.0.0-beta.1", "fd", "beta", true)
	binDir := setupEnv(t, forge)

	t.Run("default skips prereleases", func(t *testing.T) {
		out, err := runCLI("install", "sharkdp/fd")
		if err != nil {
			t.Fatalf("install failed: %v\noutput:\n%s", err, out)
		}
		if !strings.Contains(out, "v8.7.1") {
			t.Errorf("expected stable tag, got:\n%s", out)
		}
	})

	t.Run("opt in picks the beta", func(t *testing.T) {
		if _, err := runCLI("uninstall", "sharkdp/fd"); err != nil {
			t.Fatalf("uninstall: %v", err)
		}
		out, err := runCLI("install", "--prerelease", "sharkdp/fd")
		if err != nil {
			t.Fatalf("install failed: %v\noutput:\n%s", err, out)
		}
		if !strings.Contains(out, "v9.0.0-beta.1") {
			t.Errorf("expected beta tag, got:\n%s", out)
		}
		data, err := os.ReadFile(filepath.Join(binDir, "fd"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "beta" {
			t.Errorf("installed content = %q, want beta build", data)
		}
	})
}

func TestInstallCommandPartialFailure(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	forge.addEmptyRelease("foo/empty", "v1.0.0")
	binDir := setupEnv(t, forge)

	out, err := runCLI("install", "sharkdp/fd", "foo/empty")
	if err == nil {
		t.Fatal("expected a failure for the empty release")
	}
	if !strings.Contains(err.Error(), "1 of 2 targets failed") {
		t.Errorf("err = %v, want failure count", err)
	}
	if !strings.Contains(out, "installed sharkdp/fd") {
		t.Errorf("good target missing from output:\n%s", out)
	}
	if !strings.Contains(out, "foo/empty") {
		t.Errorf("failed target missing from output:\n%s", out)
	}

	if _, err := os.Stat(filepath.Join(binDir, "fd")); err != nil {
		t.Errorf("good target not installed: %v", err)
	}
	if len(loadManifest(t).Binaries) != 1 {
		t.Error("manifest should record only the successful target")
	}
}

func TestInstallCommandQuiet(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	setupEnv(t, forge)

	out, err := runCLI("install", "-q", "sharkdp/fd")
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if out != "" {
		t.Errorf("quiet install produced output:\n%s", out)
	}
}

func TestInstallCommandRejectsBadTarget(t *testing.T) {
	forge := newFakeForge(t)
	setupEnv(t, forge)

	if _, err := runCLI("install", "not-a-repo"); err == nil {
		t.Error("expected error for a target without owner/repo")
	}
	if _, err := runCLI("install", "owner/repo:a/b"); err == nil {
		t.Error("expected error for an alias with a path separator")
	}
}

func TestListCommand(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	setupEnv(t, forge)

	out, err := runCLI("list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "nothing installed") {
		t.Errorf("empty list output = %q", out)
	}

	if _, err := runCLI("install", "sharkdp/fd"); err != nil {
		t.Fatalf("install: %v", err)
	}

	out, err = runCLI("list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"NAME", "VERSION", "REPOSITORY", "PATH", "fd", "v8.7.1", "sharkdp/fd"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestListCommandJSON(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	setupEnv(t, forge)
	if _, err := runCLI("install", "sharkdp/fd"); err != nil {
		t.Fatalf("install: %v", err)
	}

	out, err := runCLI("list", "-o", "json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var got struct {
		Binaries []manifest.Entry `json:"binaries"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("list -o json produced invalid JSON: %v\n%s", err, out)
	}
	if len(got.Binaries) != 1 || got.Binaries[0].Name != "fd" || got.Binaries[0].Version != "v8.7.1" {
		t.Errorf("decoded entries = %+v", got.Binaries)
	}
}

func TestListCommandUnknownFormat(t *testing.T) {
	forge := newFakeForge(t)
	setupEnv(t, forge)

	_, err := runCLI("list", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("err = %v, want unknown format error", err)
	}
}

func TestListCommandInstallMode(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	forge.addRelease("idursun/jjui", "v0.8.0", "jjui", "jjui binary", false)
	setupEnv(t, forge)
	if _, err := runCLI("install", "sharkdp/fd", "idursun/jjui:jj"); err != nil {
		t.Fatalf("install: %v", err)
	}

	out, err := runCLI("list", "install")
	if err != nil {
		t.Fatalf("list install failed: %v", err)
	}
	// Manifest order is owner/repo sorted, and only the alias needs the
	// :name suffix.
	want := "binge install idursun/jjui:jj sharkdp/fd\n"
	if out != want {
		t.Errorf("list install = %q, want %q", out, want)
	}
}

func TestUpdateCommand(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "old build", false)
	binDir := setupEnv(t, forge)
	if _, err := runCLI("install", "sharkdp/fd"); err != nil {
		t.Fatalf("install: %v", err)
	}

	out, err := runCLI("update")
	if err != nil {
		t.Fatalf("update failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "up to date") {
		t.Errorf("expected up-to-date skip, got:\n%s", out)
	}

	forge.addRelease("sharkdp/fd", "v8.7.2", "fd", "new build", false)

	out, err = runCLI("update")
	if err != nil {
		t.Fatalf("update failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "updated sharkdp/fd to v8.7.2") {
		t.Errorf("expected update confirmation, got:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(binDir, "fd"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new build" {
		t.Errorf("file content = %q, want new build", data)
	}
	if v := loadManifest(t).Binaries[0].Version; v != "v8.7.2" {
		t.Errorf("manifest version = %q, want v8.7.2", v)
	}
}

func TestUpdateCommandNotInstalled(t *testing.T) {
	forge := newFakeForge(t)
	setupEnv(t, forge)

	out, err := runCLI("update", "nobody/nothing")
	if err == nil {
		t.Fatal("expected failure for unknown target")
	}
	if !strings.Contains(out, "not installed") {
		t.Errorf("output missing not-installed message:\n%s", out)
	}
}

func TestUninstallCommand(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	binDir := setupEnv(t, forge)
	if _, err := runCLI("install", "sharkdp/fd"); err != nil {
		t.Fatalf("install: %v", err)
	}

	out, err := runCLI("uninstall", "sharkdp/fd")
	if err != nil {
		t.Fatalf("uninstall failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "removed sharkdp/fd") {
		t.Errorf("output missing removal confirmation:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(binDir, "fd")); !os.IsNotExist(err) {
		t.Errorf("file still present after uninstall: %v", err)
	}
	if len(loadManifest(t).Binaries) != 0 {
		t.Error("manifest entry survived uninstall")
	}

	if _, err := runCLI("uninstall", "sharkdp/fd"); err == nil {
		t.Error("second uninstall should fail")
	}
}

func TestRenameCommand(t *testing.T) {
	forge := newFakeForge(t)
	forge.addRelease("sharkdp/fd", "v8.7.1", "fd", "fd binary", false)
	binDir := setupEnv(t, forge)
	if _, err := runCLI("install", "sharkdp/fd"); err != nil {
		t.Fatalf("install: %v", err)
	}

	out, err := runCLI("rename", "sharkdp/fd", "fdfind")
	if err != nil {
		t.Fatalf("rename failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "renamed sharkdp/fd to fdfind") {
		t.Errorf("output missing rename confirmation:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(binDir, "fdfind")); err != nil {
		t.Errorf("renamed file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(binDir, "fd")); !os.IsNotExist(err) {
		t.Errorf("old name still present: %v", err)
	}

	ent := loadManifest(t).Find("sharkdp", "fd")
	if ent == nil || ent.Name != "fdfind" {
		t.Errorf("manifest entry = %+v, want name fdfind", ent)
	}
}

func TestVersionCommand(t *testing.T) {
	forge := newFakeForge(t)
	setupEnv(t, forge)

	out, err := runCLI("version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "binge dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestCompletionCommand(t *testing.T) {
	forge := newFakeForge(t)
	setupEnv(t, forge)

	out, err := runCLI("completion", "bash")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if !strings.Contains(out, "binge") {
		t.Error("completion script does not mention binge")
	}

	if _, err := runCLI("completion", "powershell"); err == nil {
		t.Error("unsupported shell should be rejected")
	}
}

func TestInstallCommandMissingConfigFile(t *testing.T) {
	forge := newFakeForge(t)
	setupEnv(t, forge)
	t.Setenv("BINGE_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	if _, err := runCLI("install", "sharkdp/fd"); err == nil {
		t.Error("explicitly configured but missing config file should fail")
	}
}
