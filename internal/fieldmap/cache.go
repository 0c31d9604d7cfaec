package fieldmap

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/qwiq/internal/model"
)

// Caching decorates a Mapper with a process-wide cache.
//
// Concurrent lookups of the same key run the delegate at most once; every
// caller observes the same result. Entries are written once and never
// evicted. Failed lookups are not cached so a later call retries.
//
// Keys are per descriptor, not per entity name: two descriptors that share
// a name keep separate entries.
type Caching struct {
	delegate Mapper
	entries  sync.Map // key → string
	group    singleflight.Group

	ids    sync.Map // model.Entity → uint64
	nextID atomic.Uint64
}

// NewCaching wraps delegate.
func NewCaching(delegate Mapper) *Caching {
	return &Caching{delegate: delegate}
}

// FieldRef implements Mapper.
func (c *Caching) FieldRef(ctx context.Context, entity model.Entity, property string) (string, error) {
	key := c.cacheKey(entity, property)
	if v, ok := c.entries.Load(key); ok {
		return v.(string), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}
		ref, err := c.delegate.FieldRef(ctx, entity, property)
		if err != nil {
			return nil, err
		}
		c.entries.Store(key, ref)
		return ref, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of cached entries.
func (c *Caching) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Caching) cacheKey(entity model.Entity, property string) string {
	id, ok := c.ids.Load(entity)
	if !ok {
		id, _ = c.ids.LoadOrStore(entity, c.nextID.Add(1))
	}
	return strconv.FormatUint(id.(uint64), 10) + "\x00" + normalize(property)
}
