package model

import (
	"sort"
	"strings"
)

// DefaultCategory groups tasks that carry no category
const DefaultCategory = "Sin categoría"

// NormalizeCategory trims a list name and maps the default label back to
// "no category", which is how it is stored on tasks
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == DefaultCategory {
		return ""
	}
	return name
}

// MergeCategories returns the sorted union of the categories derived from
// tasks and the explicitly created lists
func MergeCategories(tasks []Task, lists []string) []string {
	seen := make(map[string]struct{}, len(lists))
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for i := range tasks {
		add(tasks[i].CategoryOrDefault())
	}
	for _, l := range lists {
		if l = strings.TrimSpace(l); l != "" {
			add(l)
		}
	}
	sort.Strings(out)
	return out
}
