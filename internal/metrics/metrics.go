package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// In-process labeled counters for end-of-run reporting. A scrape endpoint
// makes no sense for a job that runs to completion, so the snapshot is
// dumped to the log instead.

var (
	mu       sync.Mutex
	counters = map[string]float64{}
)

func key(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name + "{}"
	}
	ks := make([]string, 0, len(labels))
	for k := range labels {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	b := strings.Builder{}
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range ks {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", k, labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Inc adds v to the named counter with the given label set.
func Inc(name string, labels map[string]string, v float64) {
	mu.Lock()
	defer mu.Unlock()
	counters[key(name, labels)] += v
}

// Dump returns a sorted human-readable snapshot of all counters.
func Dump() string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(counters))
	for k, v := range counters {
		out = append(out, fmt.Sprintf("%s %g", k, v))
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}

// Reset clears all counters. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	counters = map[string]float64{}
}
