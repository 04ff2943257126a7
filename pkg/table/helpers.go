package table

import "sort"

func sortedExtraKeys(r Row, known map[string]struct{}) []string {
	var extra []string
	for k := range r {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}
