// catalog_cache.go — LRU-кэш справочников (секции, партии) с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sg_catalog_cache_hits_total",
		Help: "Общее количество попаданий в кэш справочников.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sg_catalog_cache_misses_total",
		Help: "Общее количество промахов кэша справочников.",
	})
)

// CatalogCache — кэш справочников. Ключи: "sections", "parties",
// "section:{id}", "party:{id}". Значения хранятся как any.
type CatalogCache struct {
	cache *expirable.LRU[string, any]
}

// NewCatalogCache создаёт кэш с указанным максимальным размером и TTL.
func NewCatalogCache(maxSize int, ttl time.Duration) *CatalogCache {
	return &CatalogCache{cache: expirable.NewLRU[string, any](maxSize, nil, ttl)}
}

// Get возвращает значение по ключу и обновляет метрики hit/miss.
func (c *CatalogCache) Get(key string) (any, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись.
func (c *CatalogCache) Set(key string, val any) {
	c.cache.Add(key, val)
}

// Purge очищает кэш целиком (инвалидация после изменения справочника).
func (c *CatalogCache) Purge() {
	c.cache.Purge()
}
