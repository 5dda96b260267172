package driver

import (
	"sync"

	"ilmerge/internal/image"
	"ilmerge/internal/project"
)

// ImageCache keeps assembled images in memory for the lifetime of the
// process, so watch mode rebuilds skip unchanged sessions without touching
// the disk. A nil cache is a no-op.
type ImageCache struct {
	mu    sync.RWMutex
	byKey map[project.Digest]*image.Image
}

// NewImageCache creates an ImageCache with the given capacity hint.
func NewImageCache(capHint int) *ImageCache {
	return &ImageCache{byKey: make(map[project.Digest]*image.Image, capHint)}
}

// Get retrieves the image stored under key.
func (c *ImageCache) Get(key project.Digest) (*image.Image, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	img, ok := c.byKey[key]
	c.mu.RUnlock()
	return img, ok
}

// Put stores img under key.
func (c *ImageCache) Put(key project.Digest, img *image.Image) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.byKey[key] = img
	c.mu.Unlock()
}

// Len reports the number of entries.
func (c *ImageCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
