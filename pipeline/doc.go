// Package pipeline runs a submitted form event through the handler stages.
//
// Execute moves one payload through
//
//	Validate -> Override -> Before -> Base -> After -> Done
//
// Override decorators receive the original payload. When at least one of them
// responds, their merged output is final and the remaining stages are skipped.
// Otherwise before decorators may rewrite the payload, the single base handler
// processes it, and after decorators post-process the base output.
//
// Decorators of one stage are called concurrently. Their responses are merged
// in registry order, the first response being the seed, so the result never
// depends on which call finished first. A decorator that fails or returns null
// is left out of the merge.
//
// Done hands the final document to the notification sink without waiting and
// upserts it into the store. Neither can fail the request.
package pipeline
