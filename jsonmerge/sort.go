package jsonmerge

import (
	"math"
	"sort"
)

const idKey = "$id"

// SortByID walks doc and stably sorts every array by the integer $id of its
// elements, recursing into array elements and nested objects. Elements without
// a usable $id, including non-object elements, sort last in their original
// relative order. doc is modified in place and returned.
func SortByID(doc Document) Document {
	for key, v := range doc {
		switch val := v.(type) {
		case []any:
			doc[key] = sortArray(val)
		case map[string]any:
			SortByID(val)
		}
	}
	return doc
}

func sortArray(arr []any) []any {
	for _, elem := range arr {
		if obj, ok := elem.(map[string]any); ok {
			SortByID(obj)
		}
	}

	sort.SliceStable(arr, func(i, j int) bool {
		return elementID(arr[i]) < elementID(arr[j])
	})
	return arr
}

func elementID(v any) int64 {
	obj, ok := v.(map[string]any)
	if !ok {
		return math.MaxInt64
	}
	id, ok := Int64(obj[idKey])
	if !ok {
		return math.MaxInt64
	}
	return id
}
