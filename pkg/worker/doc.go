// Package worker provides a generic bounded worker pool.
//
// The gateway uses it to publish notifications off the request path: the
// event pipeline submits a message and returns, and a small set of workers
// drains the queue into the configured sink. A full queue drops the item and
// returns ErrQueueFull rather than applying back-pressure to HTTP callers.
//
//	pool, err := worker.NewPool("notify", 2, 128, func(ctx context.Context, m notify.Message) error {
//		return sink.Publish(ctx, m)
//	}, worker.WithMetricsRegistry[notify.Message](registry))
//	if err != nil {
//		return err
//	}
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Stop closes the queue and waits for already queued items, so messages
// submitted before shutdown are still delivered when time allows.
package worker
