package jsonmerge

import "reflect"

// Matcher reports whether target and source are the same layout element. Both
// arguments already carry the same "type" value.
type Matcher func(target, source map[string]any) bool

// MatchOn returns a Matcher that pairs elements with equal values at key. Two
// elements that both lack key are considered equal.
func MatchOn(key string) Matcher {
	return func(target, source map[string]any) bool {
		return reflect.DeepEqual(target[key], source[key])
	}
}

// Merger merges documents using a table of per-type array element matchers.
type Merger struct {
	matchers map[string]Matcher
}

// Option configures a Merger.
type Option func(*Merger)

// WithMatcher registers or replaces the matcher used for elements whose "type" is typ.
func WithMatcher(typ string, m Matcher) Option {
	return func(mg *Merger) {
		mg.matchers[typ] = m
	}
}

// NewMerger creates a Merger that knows the JSON-Forms Group and Control
// elements, plus any extra matchers supplied.
func NewMerger(opts ...Option) *Merger {
	mg := &Merger{
		matchers: map[string]Matcher{
			"Group":   MatchOn("label"),
			"Control": MatchOn("scope"),
		},
	}
	for _, opt := range opts {
		opt(mg)
	}
	return mg
}

var defaultMerger = NewMerger()

// MergeObjects merges source into target with the default matchers.
func MergeObjects(target, source Document) Document {
	return defaultMerger.MergeObjects(target, source)
}

// MergeArrayElements reconciles source into target with the default matchers.
func MergeArrayElements(target, source []any) []any {
	return defaultMerger.MergeArrayElements(target, source)
}

// MergeObjects merges source into target and returns the result. An empty target
// yields a deep copy of source; an empty source yields target unchanged. Otherwise
// target is modified in place: nested objects recurse, arrays on both sides go
// through MergeArrayElements, and any other source value replaces the target
// value as a deep copy.
func (mg *Merger) MergeObjects(target, source Document) Document {
	if len(target) == 0 {
		return CloneDocument(source)
	}
	if len(source) == 0 {
		return target
	}

	for key, sv := range source {
		switch src := sv.(type) {
		case map[string]any:
			if tgt, ok := target[key].(map[string]any); ok {
				target[key] = mg.MergeObjects(tgt, src)
				continue
			}
		case []any:
			if tgt, ok := target[key].([]any); ok {
				target[key] = mg.MergeArrayElements(tgt, src)
				continue
			}
		}
		target[key] = Clone(sv)
	}

	return target
}

// MergeArrayElements folds each source element into target. An object whose
// type has a registered Matcher is merged into the first matching target element
// of the same type. Every other element, scalars included, is appended as a
// deep copy without de-duplication.
func (mg *Merger) MergeArrayElements(target, source []any) []any {
	for _, elem := range source {
		obj, ok := elem.(map[string]any)
		if !ok {
			target = append(target, Clone(elem))
			continue
		}

		if match := mg.findMatch(target, obj); match != nil {
			mg.MergeObjects(match, obj)
			continue
		}
		target = append(target, CloneDocument(obj))
	}
	return target
}

func (mg *Merger) findMatch(target []any, source map[string]any) map[string]any {
	typ, ok := source["type"].(string)
	if !ok {
		return nil
	}
	matcher, ok := mg.matchers[typ]
	if !ok {
		return nil
	}

	for _, candidate := range target {
		obj, ok := candidate.(map[string]any)
		if !ok || obj["type"] != typ {
			continue
		}
		if matcher(obj, source) {
			return obj
		}
	}
	return nil
}
