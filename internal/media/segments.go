package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Segment is one partial movie file with its explicit playback position.
// Ordering is always by Index — filename sort puts "s10" before "s2" and
// silently scrambles output above nine segments.
type Segment struct {
	Index int
	Path  string
}

// CollectSegments lists the .mp4 partial movie files in dir and assigns each
// an index parsed from the trailing digit run of its filename. Files named
// filelist* are the concat lists of earlier runs and are skipped.
func CollectSegments(dir string) ([]Segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment directory %s: %w", dir, err)
	}

	var segments []Segment
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".mp4") || strings.HasPrefix(name, "filelist") {
			continue
		}

		segments = append(segments, Segment{
			Index: trailingNumber(name),
			Path:  filepath.Join(dir, name),
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segment files found in %s", dir)
	}

	SortSegments(segments)
	return segments, nil
}

// SortSegments orders segments numerically by index, falling back to path
// for equal indices so the order is still total.
func SortSegments(segments []Segment) {
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Index != segments[j].Index {
			return segments[i].Index < segments[j].Index
		}
		return segments[i].Path < segments[j].Path
	})
}

// trailingNumber extracts the last run of digits from a filename, ignoring
// the extension. Files without digits get -1 and sort first.
func trailingNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	end := len(base)
	for end > 0 && !isDigit(base[end-1]) {
		end--
	}
	start := end
	for start > 0 && isDigit(base[start-1]) {
		start--
	}

	if start == end {
		return -1
	}

	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return -1
	}
	return n
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
