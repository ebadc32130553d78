// Package testutil provides test doubles for the gateway packages: a
// function-field MockHandler, a slog handler that records log output, a
// notification sink that records messages, and a store that always fails.
package testutil
