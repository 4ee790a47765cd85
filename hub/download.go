package hub

import (
	"context"
	"math/rand"
	"os"
	"path"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/heatlens/heatlens/internal/downloader"
	"github.com/heatlens/heatlens/internal/files"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Generic download utilities.

// getDownloadManager returns the current downloader.Manager, or creates a new one for this Repo.
func (r *Repo) getDownloadManager() *downloader.Manager {
	if r.downloadManager == nil {
		r.downloadManager = downloader.New().MaxParallel(r.MaxParallelDownload).WithAuthToken(r.authToken)
	}
	return r.downloadManager
}

// lockedDownload fetches url to the given filePath.
//
// If filePath exists and forceDownload is false, it is assumed to have been
// correctly downloaded already, and it returns immediately.
//
// The file is downloaded to a uniquely named temporary path and then
// atomically renamed to filePath. A filePath+".lock" file coordinates
// multiple processes/programs downloading the same file at the same time.
func (r *Repo) lockedDownload(ctx context.Context, url, filePath string, forceDownload bool, progress downloader.ProgressCallback) error {
	if files.Exists(filePath) {
		if !forceDownload {
			return nil
		}
		if err := os.Remove(filePath); err != nil {
			return errors.Wrapf(err, "failed to remove %q while force-downloading %q", filePath, url)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(path.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}

	lockPath := filePath + ".lock"
	var mainErr error
	errLock := execOnFileLock(lockPath, func() {
		if files.Exists(filePath) {
			// Some other process (or goroutine) downloaded the file while we
			// were waiting for the lock.
			return
		}

		tmpPath := filePath + "." + uuid.NewString() + ".downloading"
		defer func() {
			if files.Exists(tmpPath) {
				if err := os.Remove(tmpPath); err != nil {
					klog.Warningf("Failed removing temporary file %q: %v", tmpPath, err)
				}
			}
		}()

		mainErr = r.getDownloadManager().Download(ctx, url, tmpPath, progress)
		if mainErr != nil {
			mainErr = errors.WithMessagef(mainErr, "while downloading %q to %q", url, tmpPath)
			return
		}

		if err := os.Rename(tmpPath, filePath); err != nil {
			mainErr = errors.Wrapf(err, "failed to move downloaded file %q to %q", tmpPath, filePath)
			return
		}

		// File now exists, the lock file is no longer needed.
		if err := os.Remove(lockPath); err != nil {
			klog.Warningf("Error removing lock file %q: %+v", lockPath, err)
		}
	})
	if mainErr != nil {
		return mainErr
	}
	if errLock != nil {
		return errors.WithMessagef(errLock, "while locking %q to download %q", lockPath, url)
	}
	return nil
}

// execOnFileLock opens the lockPath file (creating it if needed), locks it,
// and executes fn. If lockPath is already locked elsewhere it polls with a
// 1 to 2 second period (randomized) until the lock is acquired.
//
// The lockPath is not removed; fn may remove it itself if it knows no further
// calls with the same lockPath will be made.
func execOnFileLock(lockPath string, fn func()) (err error) {
	fileLock := flock.New(lockPath)

	for {
		locked, lockErr := fileLock.TryLock()
		if lockErr != nil {
			return errors.Wrapf(lockErr, "while trying to lock %q", lockPath)
		}
		if locked {
			break
		}
		time.Sleep(time.Millisecond * time.Duration(1000+rand.Intn(1000)))
	}

	// Unlock in a deferred function, so it happens even if fn panics.
	defer func() {
		unlockErr := fileLock.Unlock()
		if unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
			} else {
				klog.Errorf("Error unlocking file %q: %v", lockPath, unlockErr)
			}
		}
	}()

	fn()
	return
}
