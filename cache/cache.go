package cache

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
}

const DefaultCacheSize = 1024

type LocalCache struct {
	*lru.Cache
}

func NewLocalCache(size uint64) (Cache, error) {
	if size == 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(int(size))
	if err != nil {
		return nil, err
	}
	return &LocalCache{
		cache,
	}, nil
}

func (c *LocalCache) Get(key string) (interface{}, bool) {
	return c.Cache.Get(key)
}

func (c *LocalCache) Set(key string, value interface{}) {
	c.Cache.Add(key, value)
}

// ProducerCache remembers the payout address registered by a proof producer.
type ProducerCache struct {
	cache Cache
}

func NewProducerCache(size uint64) (*ProducerCache, error) {
	c, err := NewLocalCache(size)
	if err != nil {
		return nil, err
	}
	return &ProducerCache{cache: c}, nil
}

func (p *ProducerCache) Get(name string) (common.Address, bool) {
	v, ok := p.cache.Get(name)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(common.Address)
	return addr, ok
}

func (p *ProducerCache) Set(name string, addr common.Address) {
	p.cache.Set(name, addr)
}
