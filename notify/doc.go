// Package notify delivers pipeline results to interested parties.
//
// Every completed event produces one Message {jsonData, timestamp}. The
// pipeline hands it to a Sink and never waits for delivery: AsyncSink queues
// it on a worker pool that publishes to NATS (NATSSink), to connected browsers
// (Relay), or to both (Fanout). A publish failure is logged and counted but
// never fails the request that produced the message.
//
// Consumer is the receiving side of the NATS subject. It logs each message at
// info level and can forward it to the Relay so that several gateway
// instances share one notification stream.
package notify
