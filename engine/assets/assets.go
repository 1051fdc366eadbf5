package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/skirmish/engine/assets/loaders"
	"github.com/spaghettifunk/skirmish/engine/core"
)

type AssetInfo struct {
	Path        string
	Type        loaders.ResourceType
	LastChanged time.Time
}

// AssetManager indexes the level and model files under a directory tree and
// reports when one of them changes on disk.
type AssetManager struct {
	assets map[string]AssetInfo
	mutex  sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan AssetInfo
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		changes:  make(chan AssetInfo, 16),
		done:     make(chan struct{}),
	}, nil
}

// Initialize indexes and watches assetsDir and every directory below it.
func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		return err
	}
	am.wg.Add(1)
	go am.start()
	return nil
}

// Changes delivers assets that were created or written. The engine drains it
// from the main loop; when nobody reads, changes are dropped.
func (am *AssetManager) Changes() <-chan AssetInfo {
	return am.changes
}

// Lookup returns the indexed info for path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("could not watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if info, ok := am.handleFileEvent(e.Name); ok {
					select {
					case am.changes <- info:
					default:
						core.LogDebug("asset change dropped: %s", info.Path)
					}
				}
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	assetType := loaders.DetermineResourceType(path)
	if assetType == loaders.ResourceTypeNone {
		return AssetInfo{}, false
	}
	info := AssetInfo{
		Path:        filepath.Clean(path),
		Type:        assetType,
		LastChanged: time.Now(),
	}
	am.mutex.Lock()
	am.assets[info.Path] = info
	am.mutex.Unlock()
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, filepath.Clean(path))
}
