package exclusion

import (
	"fmt"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// Configuration keys holding exclusion overrides.
const (
	KeyAppsExclude   = "apps_exclude"
	KeyTablesExclude = "tables_exclude"
)

// ParseOverrides extracts exclusion overrides from a decoded configuration
// document. It fails with *dbfill.InvalidConfigError when apps_exclude is not
// a list of names, or tables_exclude is not a mapping whose values are lists
// of names. Other keys are ignored.
func ParseOverrides(raw map[string]any) (Overrides, error) {
	var o Overrides

	if v, ok := raw[KeyAppsExclude]; ok && v != nil {
		groups, err := stringList(v)
		if err != nil {
			return Overrides{}, &dbfill.InvalidConfigError{Key: KeyAppsExclude, Reason: err.Error()}
		}
		o.ExcludedGroups = groups
	}

	if v, ok := raw[KeyTablesExclude]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return Overrides{}, &dbfill.InvalidConfigError{
				Key:    KeyTablesExclude,
				Reason: fmt.Sprintf("must be a mapping of group to type names, got %s", describe(v)),
			}
		}
		o.ExcludedTypes = make(map[dbfill.GroupID][]dbfill.TypeID, len(m))
		for group, tables := range m {
			names, err := stringList(tables)
			if err != nil {
				return Overrides{}, &dbfill.InvalidConfigError{Key: KeyTablesExclude + "." + group, Reason: err.Error()}
			}
			o.ExcludedTypes[group] = names
		}
	}

	return o, nil
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list of names, got %s", describe(v))
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d must be a name, got %s", i, describe(item))
		}
		out = append(out, s)
	}
	return out, nil
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "a string"
	case map[string]any:
		return "a mapping"
	case []any:
		return "a list"
	case int, int64, float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
