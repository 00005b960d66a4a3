package detector

import (
	"regexp"
	"strconv"
	"strings"
)

// image 1/1 /tmp/x/image0.jpg: 480x640 2 persons, 1 bus, 12.3ms
var (
	summaryDimsRe  = regexp.MustCompile(`: \d+x\d+ `)
	summaryCountRe = regexp.MustCompile(`^(\d+) (.+)$`)
)

// ParseSummary extracts per-class counts from the predict log of the
// ultralytics CLI. Lines it does not recognise are ignored.
func ParseSummary(output string) map[string]int {
	counts := make(map[string]int)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "image ") {
			continue
		}
		locs := summaryDimsRe.FindAllStringIndex(line, -1)
		if len(locs) == 0 {
			continue
		}
		rest := line[locs[len(locs)-1][1]:]

		for _, part := range strings.Split(rest, ", ") {
			part = strings.TrimSpace(part)
			m := summaryCountRe.FindStringSubmatch(part)
			if m == nil {
				continue
			}
			// skips the trailing "12.3ms" timing and "(no detections)"
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			label := m[2]
			if n > 1 {
				label = strings.TrimSuffix(label, "s")
			}
			counts[label] += n
		}
	}
	return counts
}
