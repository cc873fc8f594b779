package importers

import (
	"fmt"
	"strconv"
	"strings"

	"rite/internal/etl"
	"rite/internal/model"
)

// navigatePath walks a dot-separated path into nested objects. Numeric
// segments index arrays.
func navigatePath(tree any, path string) (any, error) {
	if path == "" {
		return tree, nil
	}
	current := tree
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case model.Object:
			next, ok := v.Get(part)
			if !ok {
				return nil, fmt.Errorf("invalid data path: %q not found", part)
			}
			current = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, fmt.Errorf("invalid data path: no element %q", part)
			}
			current = v[i]
		default:
			return nil, fmt.Errorf("invalid data path: %q is not inside an object or array", part)
		}
	}
	return current, nil
}

// treeRecord converts one element into a record. Objects keep their
// members in source order; anything else becomes a single field named
// value.
func treeRecord(item any) *model.Record {
	if obj, ok := item.(model.Object); ok {
		return model.RecordFromJSON(obj)
	}
	return model.NewRecord(model.NewFieldValue("value", model.FromJSON(item)))
}

// emitTree hands the records found in tree to h: one per array element,
// or one for any other non-null value.
func emitTree(tree any, h etl.RecordHandler) (int, error) {
	switch v := tree.(type) {
	case nil:
		return 0, nil
	case []any:
		for i, item := range v {
			if err := h.HandleRecord(treeRecord(item)); err != nil {
				return i, err
			}
		}
		return len(v), nil
	default:
		return 1, h.HandleRecord(treeRecord(v))
	}
}
