// Package citation renumbers the [n] markers in an answer so the cited
// sources read 1..k, and renders the matching source list.
package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var markerPattern = regexp.MustCompile(`\[\(?(\d+)\)?\]`)

// Mapping ties a citation number used by the model to its renumbered value.
type Mapping struct {
	Old int
	New int
}

// Renumber rewrites citations in ascending order of their original number.
// Both "[3]" and "[(3)]" are recognised and rewritten as "[n]".
func Renumber(answer string) (string, []Mapping) {
	distinct := make(map[int]struct{})
	for _, m := range markerPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		distinct[n] = struct{}{}
	}
	if len(distinct) == 0 {
		return answer, nil
	}

	olds := make([]int, 0, len(distinct))
	for n := range distinct {
		olds = append(olds, n)
	}
	sort.Ints(olds)

	renumbered := make(map[int]int, len(olds))
	mappings := make([]Mapping, 0, len(olds))
	for i, old := range olds {
		renumbered[old] = i + 1
		mappings = append(mappings, Mapping{Old: old, New: i + 1})
	}

	// single pass so a rewritten marker is never rewritten again
	rewritten := markerPattern.ReplaceAllStringFunc(answer, func(marker string) string {
		n, err := strconv.Atoi(markerPattern.FindStringSubmatch(marker)[1])
		if err != nil {
			return marker
		}
		return fmt.Sprintf("[%d]", renumbered[n])
	})
	return rewritten, mappings
}

// Links renders "new. url" lines. sources are the context entries the model
// saw, numbered from 1; citations outside that range are dropped.
func Links(mappings []Mapping, sources []string) string {
	lines := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if m.Old < 1 || m.Old > len(sources) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", m.New, sources[m.Old-1]))
	}
	return strings.Join(lines, "\n")
}
