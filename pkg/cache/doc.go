// Package cache provides a generic, thread-safe time-to-live cache.
//
// Entries expire lazily: an expired entry is removed by the Get that finds it
// or by Prune. There is no background goroutine, so a TTL cache needs no
// Close. Hit, miss and eviction counts are always kept and available through
// Stats.
//
//	c, err := cache.NewTTL[[]byte](time.Minute)
//	if err != nil {
//	    return err
//	}
//	if body, ok := c.Get("/api/schema"); ok {
//	    return body
//	}
package cache
