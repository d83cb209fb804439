package record

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

// DeviceCounts maps a device label to the number of units a client has.
type DeviceCounts map[string]int

var deviceEntryRe = regexp.MustCompile(`^(.*?)\s*\((\d+)\)$`)

// DecodeDevices turns the persisted device entries into counts.
//
// "Android (3)" sets Android to 3; a repeated suffixed label overwrites the
// previous value. Entries without a numeric suffix are bare labels and each
// occurrence adds one, so ["LG", "LG"] decodes to LG=2.
func DecodeDevices(entries []string) DeviceCounts {
	counts := make(DeviceCounts, len(entries))
	for _, entry := range entries {
		if m := deviceEntryRe.FindStringSubmatch(entry); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil {
				if m[1] != "" {
					counts[m[1]] = n
				}
				continue
			}
		}
		if entry == "" {
			continue
		}
		counts[entry]++
	}
	return counts
}

// EncodeDevices renders counts as persisted entries. Every positive count is
// written with an explicit suffix, "LG (1)" included, and zero counts are
// dropped. Labels from the device catalog come first in catalog order,
// any other labels follow alphabetically.
func EncodeDevices(counts DeviceCounts) []string {
	entries := make([]string, 0, len(counts))
	for _, label := range orderedLabels(counts) {
		if n := counts[label]; n > 0 {
			entries = append(entries, fmt.Sprintf("%s (%d)", label, n))
		}
	}
	return entries
}

// InitialDevices returns every known label with a zero count, the starting
// point of an empty form.
func InitialDevices(known []string) DeviceCounts {
	counts := make(DeviceCounts, len(known))
	for _, label := range known {
		counts[label] = 0
	}
	return counts
}

// DeviceLabels lists the labels present in persisted entries with a positive
// count, in encoding order.
func DeviceLabels(entries []string) []string {
	counts := DecodeDevices(entries)
	labels := make([]string, 0, len(counts))
	for _, label := range orderedLabels(counts) {
		if counts[label] > 0 {
			labels = append(labels, label)
		}
	}
	return labels
}

// Total is the number of units across all labels.
func (c DeviceCounts) Total() int {
	total := 0
	for _, n := range c {
		if n > 0 {
			total += n
		}
	}
	return total
}

func orderedLabels(counts DeviceCounts) []string {
	labels := make([]string, 0, len(counts))
	seen := make(map[string]struct{}, len(counts))
	for _, label := range DeviceOptions {
		if _, ok := counts[label]; ok {
			labels = append(labels, label)
			seen[label] = struct{}{}
		}
	}
	rest := make([]string, 0, len(counts)-len(labels))
	for label := range counts {
		if _, ok := seen[label]; !ok {
			rest = append(rest, label)
		}
	}
	slices.Sort(rest)
	return append(labels, rest...)
}
