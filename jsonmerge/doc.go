// Package jsonmerge combines JSON-Forms fragments contributed by independent handlers.
//
// Documents are the generic trees produced by encoding/json: map[string]any for
// objects, []any for arrays, json.Number for numbers. Parse decodes with UseNumber
// so integer fields such as $id survive a round trip unchanged.
//
// MergeObjects is right-biased: for overlapping scalar keys the source wins, so
// callers must merge in a fixed order. Arrays are reconciled by MergeArrayElements,
// which pairs UI-schema layout elements by identity (a Group by its label, a Control
// by its scope) instead of concatenating them. New layout types are supported by
// registering a Matcher on a Merger.
//
// SortByID orders every object array by its integer $id so that a UI schema merged
// from several handlers renders the same way regardless of contribution order.
package jsonmerge
