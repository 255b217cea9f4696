// Package library provides video library indexing and management.
package library

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dewi-tim/vidtui/internal/log"
	"github.com/dewi-tim/vidtui/internal/player"
)

// DefaultWorkers is the number of files probed concurrently.
const DefaultWorkers = 4

// Video-compatible file extensions.
var videoExtensions = []string{".mkv", ".mp4", ".m4v", ".webm", ".avi", ".mov", ".ogv", ".mpg", ".mpeg", ".ts", ".wmv", ".flv"}

// Prober reads metadata of a media file.
type Prober interface {
	Probe(path string) (*player.Media, error)
}

// Video is a file in the library.
type Video struct {
	player.Media
	Collection string
	Probed     bool // false when metadata came from the filename only
}

// Collection groups the videos under one top-level folder of the root.
type Collection struct {
	Name   string
	Videos []Video
}

// Option configures a Library.
type Option func(*Library)

// WithProber sets the metadata prober. Without one, titles come from
// filenames.
func WithProber(p Prober) Option {
	return func(l *Library) {
		l.prober = p
	}
}

// WithWorkers bounds concurrent probes.
func WithWorkers(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// Library represents an indexed video library.
type Library struct {
	mu          sync.RWMutex
	root        string
	collections map[string]*Collection
	videos      []Video // Flat list for quick access

	prober  Prober
	workers int
	logger  zerolog.Logger
}

// New creates a new library rooted at the given directory.
func New(root string, opts ...Option) *Library {
	l := &Library{
		root:        root,
		collections: make(map[string]*Collection),
		videos:      make([]Video, 0),
		workers:     DefaultWorkers,
		logger:      log.WithComponent("library"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

// Scan walks the root, probes every video file and replaces the index.
// Returns the number of videos found.
func (l *Library) Scan(ctx context.Context) (int, error) {
	paths, err := l.walk()
	if err != nil {
		return 0, err
	}

	videos := make([]Video, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			videos[i] = l.describe(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, errors.Wrap(err, "scan library")
	}

	collections := make(map[string]*Collection)
	for _, v := range videos {
		c, ok := collections[v.Collection]
		if !ok {
			c = &Collection{Name: v.Collection}
			collections[v.Collection] = c
		}
		c.Videos = append(c.Videos, v)
	}
	for _, c := range collections {
		sortVideos(c.Videos)
	}
	sortVideos(videos)

	l.mu.Lock()
	l.collections = collections
	l.videos = videos
	l.mu.Unlock()

	l.logger.Debug().Int("videos", len(videos)).Int("collections", len(collections)).Msg("library scanned")
	return len(videos), nil
}

// walk lists video files under the root, skipping hidden entries.
func (l *Library) walk() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.root {
				return err
			}
			return nil // Skip entries we can't access
		}

		if strings.HasPrefix(d.Name(), ".") && path != l.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", l.root)
	}
	return paths, nil
}

// describe builds the library entry for one file.
func (l *Library) describe(path string) Video {
	v := Video{
		Media: player.Media{
			Path:  path,
			Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		},
		Collection: l.collectionOf(path),
	}

	if l.prober == nil {
		return v
	}
	m, err := l.prober.Probe(path)
	if err != nil {
		l.logger.Debug().Err(err).Str("file", path).Msg("probe failed")
		return v
	}

	v.Media = *m
	v.Path = path
	if v.Title == "" {
		v.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	v.Probed = true
	return v
}

// collectionOf names the top-level folder containing path. Files directly
// in the root belong to a collection named after the root.
func (l *Library) collectionOf(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return filepath.Base(l.root)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return filepath.Base(l.root)
	}
	return parts[0]
}

func sortVideos(videos []Video) {
	sort.SliceStable(videos, func(i, j int) bool {
		if videos[i].Title != videos[j].Title {
			return videos[i].Title < videos[j].Title
		}
		return videos[i].Path < videos[j].Path
	})
}

// Collections returns a sorted list of collection names.
func (l *Library) Collections() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.collections))
	for name := range l.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetCollection returns a collection by name.
func (l *Library) GetCollection(name string) *Collection {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.collections[name]
}

// Videos returns the sorted videos of a collection.
func (l *Library) Videos(collection string) []Video {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.collections[collection]
	if !ok {
		return nil
	}
	result := make([]Video, len(c.Videos))
	copy(result, c.Videos)
	return result
}

// AllVideos returns all videos in the library.
func (l *Library) AllVideos() []Video {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Video, len(l.videos))
	copy(result, l.videos)
	return result
}

// VideoCount returns the total number of videos.
func (l *Library) VideoCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.videos)
}

// IsVideoFile checks if a filename has a video extension.
func IsVideoFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
