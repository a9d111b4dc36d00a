package chat

import "strings"

// TopicFilter is the optional keyword pre-filter: a message must
// contain at least one allow-listed keyword (case-insensitive
// substring) to reach the upstream. It is an independent layer in
// front of the system-prompt refusal, not a replacement for it.
type TopicFilter struct {
	keywords []string
}

// NewTopicFilter creates a filter over the given allow-list.
func NewTopicFilter(keywords []string) *TopicFilter {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &TopicFilter{keywords: lowered}
}

// Allows reports whether the message mentions any allow-listed keyword.
func (f *TopicFilter) Allows(message string) bool {
	m := strings.ToLower(message)
	for _, k := range f.keywords {
		if strings.Contains(m, k) {
			return true
		}
	}
	return false
}
