// Package catalog loads and serves the fixed set of reference poses.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
)

// imageExtensions are tried in order for each numbered reference.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Config holds catalog settings.
type Config struct {
	// Dir is the reference image directory, containing 1.jpg .. N.jpg.
	Dir string
	// MaxReferences is N, the upper bound of the numbering scheme.
	MaxReferences int
	// ExtractTimeout bounds each extractor call during load, so one
	// hung entry cannot stall startup or a reload. Zero disables it.
	ExtractTimeout time.Duration
}

// Catalog owns the reference poses. Snapshots are immutable and
// swapped atomically, so in-flight matches never observe a
// half-updated set.
type Catalog struct {
	cfg       Config
	extractor domain.Extractor
	cache     *VectorCache
	logger    *zap.Logger

	snapshot atomic.Pointer[[]domain.ReferencePose]
}

// New creates a catalog. cache may be nil to disable landmark caching.
func New(cfg Config, extractor domain.Extractor, cache *VectorCache, logger *zap.Logger) *Catalog {
	c := &Catalog{
		cfg:       cfg,
		extractor: extractor,
		cache:     cache,
		logger:    logger,
	}
	empty := []domain.ReferencePose{}
	c.snapshot.Store(&empty)
	return c
}

// Load builds a fresh snapshot from the reference directory and swaps
// it in. Entries whose image cannot be read or whose extractor call
// fails are skipped and logged; the catalog may legitimately end up
// smaller than MaxReferences.
func (c *Catalog) Load(ctx context.Context) error {
	poses := make([]domain.ReferencePose, 0, c.cfg.MaxReferences)

	for id := 1; id <= c.cfg.MaxReferences; id++ {
		pose, ok := c.loadOne(ctx, id)
		if !ok {
			continue
		}
		poses = append(poses, pose)
	}

	// Matching relies on ascending ids for the deterministic tie-break.
	sort.Slice(poses, func(i, j int) bool { return poses[i].ID < poses[j].ID })

	c.snapshot.Store(&poses)
	observeCatalogSize(len(poses))

	c.logger.Info("Reference pose catalog loaded",
		zap.String("dir", c.cfg.Dir),
		zap.Int("loaded", len(poses)),
		zap.Int("max", c.cfg.MaxReferences),
	)

	if len(poses) == 0 {
		return fmt.Errorf("no reference poses loaded from %s: %w", c.cfg.Dir, domain.ErrNoReferenceAvailable)
	}
	return nil
}

// Reload is Load under a name that reads well at call sites (SIGHUP).
func (c *Catalog) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

// Snapshot returns the current immutable reference set, sorted by id.
// Callers must not mutate it.
func (c *Catalog) Snapshot() []domain.ReferencePose {
	return *c.snapshot.Load()
}

// Size reports how many reference poses the current snapshot holds.
func (c *Catalog) Size() int {
	return len(c.Snapshot())
}

func (c *Catalog) loadOne(ctx context.Context, id int) (domain.ReferencePose, bool) {
	path, data, err := c.readImage(id)
	if err != nil {
		c.logger.Warn("Skipping reference pose: unreadable image",
			zap.Int("id", id), zap.Error(err))
		return domain.ReferencePose{}, false
	}

	vector, err := c.extractVector(ctx, data)
	if err != nil {
		c.logger.Warn("Skipping reference pose: extraction failed",
			zap.Int("id", id), zap.String("image", path), zap.Error(err))
		return domain.ReferencePose{}, false
	}

	return domain.ReferencePose{
		ID:        id,
		ImageFile: filepath.Base(path),
		Vector:    vector,
	}, true
}

// readImage finds the first existing extension variant for a numbered
// reference and returns its path and bytes.
func (c *Catalog) readImage(id int) (string, []byte, error) {
	var lastErr error
	for _, ext := range imageExtensions {
		path := filepath.Join(c.cfg.Dir, fmt.Sprintf("%d%s", id, ext))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				lastErr = err
				continue
			}
			return "", nil, fmt.Errorf("read %s: %w", path, err)
		}
		return path, data, nil
	}
	return "", nil, fmt.Errorf("no image found for reference %d: %w", id, lastErr)
}

// extractVector returns the cached landmark vector for the image bytes
// or runs the extractor and caches the result. Cache failures degrade
// to recomputation, never to a load failure.
func (c *Catalog) extractVector(ctx context.Context, image []byte) (domain.Vector, error) {
	if c.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ExtractTimeout)
		defer cancel()
	}

	if c.cache != nil {
		if vec, ok := c.cache.Get(ctx, image); ok {
			return vec, nil
		}
	}

	vec, err := c.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract landmarks: %w", err)
	}
	if err := vec.Validate(); err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Put(ctx, image, vec)
	}
	return vec, nil
}
