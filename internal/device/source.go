package device

import "fmt"

// Source identifies where a write request came from.
type Source string

// Write sources.
const (
	SourceCloud    Source = "cloud"
	SourceLocalLAN Source = "local"
	SourceSchedule Source = "schedule"
	SourceScene    Source = "scene"
	SourceInit     Source = "init"
)

// ParseSource converts a source name to a Source.
func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceCloud, SourceLocalLAN, SourceSchedule, SourceScene, SourceInit:
		return src, nil
	default:
		return "", fmt.Errorf("unknown write source %q", s)
	}
}

// String returns the source name.
func (s Source) String() string { return string(s) }
