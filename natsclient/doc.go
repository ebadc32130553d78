// Package natsclient wraps a NATS connection for the form gateway.
//
// The gateway uses NATS for two things: core publish/subscribe on the
// notification subject, and a JetStream key-value bucket that backs the
// single-record store. Client handles connection lifecycle and reports
// health transitions through WithHealthChangeCallback; KVStore adds
// compare-and-swap updates on top of a bucket.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("formgateway"),
//		natsclient.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "FORM_DATA"})
//	kv := client.NewKVStore(bucket)
//	err = kv.UpdateWithRetry(ctx, "current", func(_ []byte) ([]byte, error) {
//		return payload, nil
//	})
//
// NewTestClient starts a disposable server with testcontainers for
// integration tests, which are guarded by the "integration" build tag.
package natsclient
