// Package hub downloads and caches files from HuggingFace-style repositories
// (model repos for tokenizer files, dataset repos for attribution datasets).
//
// Downloads are cached under a per-repo directory and coordinated across
// processes with a lock file, so concurrent programs fetching the same file
// do the work only once.
package hub

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/heatlens/heatlens/internal/downloader"
	"github.com/heatlens/heatlens/internal/files"
	"github.com/pkg/errors"
)

// DefaultDirCreationPerm is used when creating cache directories.
const DefaultDirCreationPerm = os.FileMode(0755)

// RepoType selects the URL namespace of a repository.
type RepoType string

const (
	RepoTypeModel   RepoType = "model"
	RepoTypeDataset RepoType = "dataset"
)

// Repo represents one remote repository, identified by its "owner/name" ID.
type Repo struct {
	// ID of the repo, e.g. "bert-base-cased" or "owner/name".
	ID string

	// Type of the repo; affects the download URL. Defaults to RepoTypeModel.
	Type RepoType

	// Revision to fetch from. Defaults to "main".
	Revision string

	// MaxParallelDownload bounds concurrent downloads through this Repo.
	MaxParallelDownload int

	cacheDir        string
	authToken       string
	endpoint        string
	downloadManager *downloader.Manager
}

// New creates a Repo for the given ID with default settings.
// The cache directory defaults to ${XDG_CACHE_HOME:-~/.cache}/heatlens/hub.
func New(id string) *Repo {
	return &Repo{
		ID:                  id,
		Type:                RepoTypeModel,
		Revision:            "main",
		MaxParallelDownload: 4,
		cacheDir:            defaultCacheDir(),
		authToken:           os.Getenv("HF_TOKEN"),
		endpoint:            "https://huggingface.co",
	}
}

// NewDataset creates a Repo for a dataset repository.
func NewDataset(id string) *Repo {
	r := New(id)
	r.Type = RepoTypeDataset
	return r
}

// WithCacheDir changes the cache directory. It returns the Repo for chaining.
func (r *Repo) WithCacheDir(dir string) *Repo {
	r.cacheDir = dir
	return r
}

// WithAuth sets the bearer token used for downloads.
func (r *Repo) WithAuth(token string) *Repo {
	r.authToken = token
	r.downloadManager = nil
	return r
}

// WithEndpoint changes the base URL files are fetched from. Useful for
// mirrors and tests.
func (r *Repo) WithEndpoint(endpoint string) *Repo {
	r.endpoint = strings.TrimSuffix(endpoint, "/")
	return r
}

// WithRevision changes the revision (branch, tag or commit) files are
// fetched from.
func (r *Repo) WithRevision(revision string) *Repo {
	r.Revision = revision
	return r
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "heatlens", "hub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "heatlens", "hub")
	}
	return filepath.Join(home, ".cache", "heatlens", "hub")
}

// repoDir returns the local cache directory for this repo.
func (r *Repo) repoDir() string {
	sanitized := strings.ReplaceAll(r.ID, "/", "--")
	return filepath.Join(r.cacheDir, string(r.Type)+"s--"+sanitized)
}

// fileURL returns the resolve URL for the given file in this repo.
func (r *Repo) fileURL(fileName string) string {
	base := r.endpoint + "/"
	if r.Type == RepoTypeDataset {
		base += "datasets/"
	}
	return base + r.ID + "/resolve/" + r.Revision + "/" + fileName
}

// localPath returns where the given file is (or will be) cached.
func (r *Repo) localPath(fileName string) string {
	return filepath.Join(r.repoDir(), filepath.FromSlash(fileName))
}

// IsCached returns whether the given file has already been downloaded.
func (r *Repo) IsCached(fileName string) bool {
	return files.Exists(r.localPath(fileName))
}

// HasFile reports whether the repo serves the given file. A cached copy
// counts; otherwise a HEAD request is issued.
func (r *Repo) HasFile(fileName string) bool {
	if r.IsCached(fileName) {
		return true
	}
	req, err := http.NewRequest(http.MethodHead, r.fileURL(fileName), nil)
	if err != nil {
		return false
	}
	if r.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.authToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// DownloadFile fetches the given file (if not already cached) and returns the
// local path. Download errors are returned unmodified; there is no retry.
func (r *Repo) DownloadFile(fileName string) (string, error) {
	return r.DownloadFileCtx(context.Background(), fileName)
}

// DownloadFileCtx is DownloadFile with an explicit context.
func (r *Repo) DownloadFileCtx(ctx context.Context, fileName string) (string, error) {
	filePath := r.localPath(fileName)
	err := r.lockedDownload(ctx, r.fileURL(fileName), filePath, false, nil)
	if err != nil {
		return "", err
	}
	return filePath, nil
}

// ForceDownloadFile re-downloads the file even if a cached copy exists.
func (r *Repo) ForceDownloadFile(ctx context.Context, fileName string) (string, error) {
	filePath := r.localPath(fileName)
	err := r.lockedDownload(ctx, r.fileURL(fileName), filePath, true, nil)
	if err != nil {
		return "", err
	}
	return filePath, nil
}

// ReadFileContent downloads (if needed) and reads the whole file.
func (r *Repo) ReadFileContent(fileName string) ([]byte, error) {
	localPath, err := r.DownloadFile(fileName)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading cached file %q", localPath)
	}
	return content, nil
}
