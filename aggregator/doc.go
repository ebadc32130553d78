// Package aggregator composes the form definition from every registered handler.
//
// Each operation calls one capability on every handler in registry order and
// folds the successful results into an accumulator that starts empty:
//
//	Data, Schema       merged with jsonmerge.MergeObjects
//	UISchema           merged the same way, then ordered once with SortByID
//	ClientEventScript  each script wrapped as {"handler": script}; the last wins
//
// A NotSupported result is skipped silently. Any other failure is logged and
// that handler contributes nothing; aggregation itself never fails.
package aggregator
