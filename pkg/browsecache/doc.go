// Package browsecache provides a two-tier cache for remote file-browsing
// clients: a bounded in-memory LRU tier over a size-bounded persisted tier
// (local disk or Redis). Lookups read through memory to the persisted tier,
// promoting persisted hits into memory; writes go to both tiers, with the
// persisted write applied asynchronously by a background worker.
//
// The cache is a best-effort acceleration layer, never a source of truth:
// corruption, disk I/O failures, and serialization rejections degrade to
// misses or skipped writes, surfaced only through statistics, logs, and
// fault hooks. Callers always keep working against the origin at reduced
// speed.
//
// Basic usage:
//
//	cache, err := browsecache.New(
//		browsecache.NewDefaultConfig().WithCacheDir("/tmp/browsecache"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cache.Shutdown()
//
//	files := browsecache.NewFileListCache(cache, 0)
//	listing, err := files.GetOrFetch("conn-1", "/docs", fetchFromServer)
//
// FileListCache and SearchCache are thin policy layers that compose key
// generation, serializability validation, and TTL selection on top of the
// core Put/Get/Invalidate contract. SearchCache adapts TTLs from observed
// query frequency via SearchOptimizer.
package browsecache
