package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/db"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
)

var cacheKeyPrefix = domain.KeyPrefix + "landmarks:"

// kv is the consumer interface for the landmark cache.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// VectorCache caches extracted reference landmark vectors in a
// key-value store, keyed by image content hash, so catalog reloads do
// not re-run the pose model over unchanged images.
type VectorCache struct {
	store      kv
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewVectorCache creates a landmark vector cache.
func NewVectorCache(store kv, logger *zap.Logger) *VectorCache {
	return &VectorCache{
		store:      store,
		cacheTotal: metrics.LandmarkCacheTotal,
		logger:     logger,
	}
}

// Get returns the cached vector for the image bytes, if present and
// well-formed.
func (c *VectorCache) Get(ctx context.Context, image []byte) (domain.Vector, bool) {
	key := c.cacheKey(image)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached landmarks", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached landmarks", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return nil, false
	}

	c.incCache("hit")
	return vec, true
}

// Put stores a vector for the image bytes. Failures are logged, not
// returned: the cache is an optimization.
func (c *VectorCache) Put(ctx context.Context, image []byte, vec domain.Vector) {
	key := c.cacheKey(image)
	if err := c.store.Set(ctx, key, vectorToCacheBytes(vec)); err != nil {
		c.logger.Warn("Failed to cache landmarks", zap.String("key", key), zap.Error(err))
	}
}

func (c *VectorCache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *VectorCache) cacheKey(image []byte) string {
	h := sha256.Sum256(image)
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func vectorToCacheBytes(v domain.Vector) []byte {
	flat := v.Flatten()
	buf := make([]byte, len(flat)*8)
	for i, f := range flat {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func bytesToVector(data []byte) (domain.Vector, error) {
	if len(data)%24 != 0 {
		return nil, fmt.Errorf("invalid landmark cache data: len=%d (not a multiple of 24)", len(data))
	}
	vec := make(domain.Vector, len(data)/24)
	for i := range vec {
		off := i * 24
		vec[i] = domain.Landmark{
			X: math.Float64frombits(binary.LittleEndian.Uint64(data[off:])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(data[off+8:])),
			Z: math.Float64frombits(binary.LittleEndian.Uint64(data[off+16:])),
		}
	}
	if err := vec.Validate(); err != nil {
		return nil, err
	}
	return vec, nil
}

func observeCatalogSize(n int) {
	metrics.CatalogSize.Set(float64(n))
}
