package db

import (
	"log"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Cache keys are tracked per type so a scan can invalidate every cached
// subscription list at once without touching scan history entries.
var (
	Cache                 *ristretto.Cache
	SubscriptionCacheKeys = struct {
		sync.RWMutex
		m map[string]struct{}
	}{m: make(map[string]struct{})}
	ScanCacheKeys = struct {
		sync.RWMutex
		m map[string]struct{}
	}{m: make(map[string]struct{})}
)

func InitCache() {
	var err error
	Cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
}

func GetCache(cacheKey string) (interface{}, bool) {
	if Cache == nil {
		return nil, false
	}
	return Cache.Get(cacheKey)
}

// Subscription Cache Functions
func SetSubscriptionCache(cacheKey string, value interface{}) {
	if Cache == nil {
		return
	}
	SubscriptionCacheKeys.Lock()
	SubscriptionCacheKeys.m[cacheKey] = struct{}{}
	SubscriptionCacheKeys.Unlock()
	Cache.Set(cacheKey, value, 1)
}

func ClearAllSubscriptionCaches() {
	if Cache == nil {
		return
	}
	SubscriptionCacheKeys.Lock()
	for key := range SubscriptionCacheKeys.m {
		Cache.Del(key)
	}
	SubscriptionCacheKeys.m = make(map[string]struct{})
	SubscriptionCacheKeys.Unlock()
}

// Scan Cache Functions
func SetScanCache(cacheKey string, value interface{}) {
	if Cache == nil {
		return
	}
	ScanCacheKeys.Lock()
	ScanCacheKeys.m[cacheKey] = struct{}{}
	ScanCacheKeys.Unlock()
	Cache.Set(cacheKey, value, 1)
}

func ClearAllScanCaches() {
	if Cache == nil {
		return
	}
	ScanCacheKeys.Lock()
	for key := range ScanCacheKeys.m {
		Cache.Del(key)
	}
	ScanCacheKeys.m = make(map[string]struct{})
	ScanCacheKeys.Unlock()
}
