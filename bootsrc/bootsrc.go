// Package bootsrc resolves the bytes loaded into the primordial process's
// user image at boot (spec §4.3's "loads an embedded initcode blob"),
// generalized to pull that blob from a cached git repository, a GitHub
// release artifact, or a tiny built-in default when neither is configured.
// It implements kernel.InitImageSource.
package bootsrc

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"
	githubapi "github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"
)

const (
	CacheDirName     = "miniproc"
	CacheRepoDirName = "repos"

	// DefaultInitPath is the path, relative to a resolved repository's
	// root, the boot loader reads as the init image.
	DefaultInitPath = "initcode.bin"

	builtinImage = "\x00\x00INIT"
)

// GitSource resolves the init image from a file at a fixed path within a
// git repository, cached on disk under the XDG data directory (or cloned
// in-memory when InMemory is set).
type GitSource struct {
	// RepoURL is any URL go-git's Clone accepts.
	RepoURL string
	// InitPath is the path within the repo to read as the init image.
	// Defaults to DefaultInitPath.
	InitPath string
	// InMemory clones the repo into memory instead of the on-disk cache.
	// Useful for small repos and tests; large repos should leave this
	// false so the on-disk cache is reused across boots.
	InMemory bool
}

// ResolveInitImage implements kernel.InitImageSource.
func (g GitSource) ResolveInitImage() ([]byte, string, error) {
	initPath := g.InitPath
	if initPath == "" {
		initPath = DefaultInitPath
	}

	repo, err := g.resolveRepo()
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed resolving git source %s: %w", g.RepoURL, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed resolving HEAD of %s: %w", g.RepoURL, err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed resolving HEAD commit of %s: %w", g.RepoURL, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed resolving tree of %s: %w", g.RepoURL, err)
	}
	file, err := tree.File(initPath)
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: %s has no %s: %w", g.RepoURL, initPath, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed reading %s from %s: %w", initPath, g.RepoURL, err)
	}

	data := []byte(contents)
	return data, fingerprint(data), nil
}

func (g GitSource) resolveRepo() (*git.Repository, error) {
	if g.InMemory {
		return git.Clone(memory.NewStorage(), nil, &git.CloneOptions{URL: g.RepoURL})
	}

	fp := filepath.Join(cacheLocation(), encodedCacheName(g.RepoURL))
	if _, err := os.Stat(fp); err != nil {
		if err := ensureCacheDir(); err != nil {
			return nil, fmt.Errorf("failed ensuring cache location exists: %w", err)
		}
		return git.PlainClone(fp, false, &git.CloneOptions{URL: g.RepoURL})
	}

	repo, err := git.PlainOpen(fp)
	if err != nil {
		return nil, fmt.Errorf("failed opening cached repo: %w", err)
	}
	if err := repo.Fetch(&git.FetchOptions{RemoteURL: g.RepoURL}); err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("failed checking if cached repo was up to date: %w", err)
	}
	return repo, nil
}

func ensureCacheDir() error {
	fp := cacheLocation()
	if _, err := os.Stat(fp); err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(fp, 0o777)
		}
		return err
	}
	return nil
}

// cacheLocation returns $XDG_DATA_HOME/miniproc/repos, mirroring the
// teacher's getDefaultCacheLocation convention.
func cacheLocation() string {
	return filepath.Join(xdg.DataHome, CacheDirName, CacheRepoDirName)
}

func encodedCacheName(url string) string {
	return base64.StdEncoding.EncodeToString([]byte(url))
}

// GitHubReleaseSource resolves the init image from the first matching
// asset of a GitHub release.
type GitHubReleaseSource struct {
	// Repo is "owner/name", e.g. "arctir/miniproc".
	Repo string
	// Tag selects a specific release. Empty means the latest release.
	Tag string
	// AssetName selects a specific asset by name within the release.
	// Empty means the first asset.
	AssetName string
	// Token is an optional GitHub personal access token, required for
	// private repositories.
	Token string
}

// ResolveInitImage implements kernel.InitImageSource.
func (s GitHubReleaseSource) ResolveInitImage() ([]byte, string, error) {
	parts := strings.SplitN(s.Repo, "/", 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("bootsrc: repo %q must be in owner/name form", s.Repo)
	}

	client := newGithubClient(s.Token)
	ctx := context.Background()

	var release *githubapi.RepositoryRelease
	var err error
	if s.Tag != "" {
		release, _, err = client.Repositories.GetReleaseByTag(ctx, parts[0], parts[1], s.Tag)
	} else {
		release, _, err = client.Repositories.GetLatestRelease(ctx, parts[0], parts[1])
	}
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed retrieving release for %s: %w", s.Repo, err)
	}

	var asset *githubapi.ReleaseAsset
	for _, a := range release.Assets {
		if s.AssetName == "" || a.GetName() == s.AssetName {
			asset = a
			break
		}
	}
	if asset == nil {
		return nil, "", fmt.Errorf("bootsrc: no matching asset in release %s of %s", release.GetTagName(), s.Repo)
	}

	rc, _, err := client.Repositories.DownloadReleaseAsset(ctx, parts[0], parts[1], asset.GetID(), http.DefaultClient)
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed downloading asset %s: %w", asset.GetName(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("bootsrc: failed reading asset %s: %w", asset.GetName(), err)
	}
	return data, fingerprint(data), nil
}

func newGithubClient(token string) *githubapi.Client {
	var httpClient *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	return githubapi.NewClient(httpClient)
}

// BuiltinSource is a minimal, always-available init image. It holds the
// same bytes as the kernel package's own fallback, which kernel.New uses
// when no boot source is configured.
type BuiltinSource struct{}

// ResolveInitImage implements kernel.InitImageSource.
func (BuiltinSource) ResolveInitImage() ([]byte, string, error) {
	data := []byte(builtinImage)
	return data, fingerprint(data), nil
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
