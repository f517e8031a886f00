// Package buckets groups catalog query results by bucket name for navigation.
package buckets

import (
	"sort"

	"examia/internal/model"
)

// Group is one bucket and its questions in source order.
type Group struct {
	Name      string           `json:"name"`
	Questions []model.Question `json:"questions"`
}

// GroupByBucket partitions qs by the raw Bucket string. Groups appear in the
// order their first question appears; questions keep their relative order.
func GroupByBucket(qs []model.Question) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)
	for _, q := range qs {
		i, ok := index[q.Bucket]
		if !ok {
			i = len(groups)
			index[q.Bucket] = i
			groups = append(groups, Group{Name: q.Bucket})
		}
		groups[i].Questions = append(groups[i].Questions, q)
	}
	return groups
}

// ListBucketNames returns the group names sorted lexicographically by byte value.
func ListBucketNames(groups []Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	sort.Strings(names)
	return names
}
