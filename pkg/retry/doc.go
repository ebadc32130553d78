// Package retry provides exponential backoff with optional jitter.
//
// Remote handler calls retry transient failures with a short policy derived from
// errors.RetryConfig. The JetStream KV record store starts from Quick to absorb
// compare-and-set conflicts.
//
//	body, err := retry.DoWithResult(ctx, cfg, func() ([]byte, error) {
//	    return c.get(ctx, route)
//	})
//
// Return NonRetryable(err) from fn to stop immediately, for example on an HTTP 4xx.
package retry
