package metrics

import "sort"

// StatusBucket is the number of responses one service returned with one code.
type StatusBucket struct {
	Service string
	Code    string
	Count   int64
}

// StatusBuckets flattens the per-service status counts of a snapshot into
// rows sorted by descending count, then by service and code for stability.
func (s Snapshot) StatusBuckets() []StatusBucket {
	var rows []StatusBucket
	for _, svc := range s.Services {
		for code, count := range svc.StatusCodes {
			rows = append(rows, StatusBucket{Service: svc.Service, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Service == rows[j].Service {
				return rows[i].Code < rows[j].Code
			}
			return rows[i].Service < rows[j].Service
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
