package knowledge

import (
	"sort"
	"strings"
)

// Topic is a tag from the fixed topic vocabulary.
type Topic uint8

const (
	TopicCircular Topic = iota
	TopicConstitution
	TopicCulture
	TopicDecree
	TopicGeography
	TopicHistory
	TopicLaw
	TopicPhilosophy
	TopicRegulation
	TopicOthers
	numTopics
)

var topicNames = [numTopics]string{
	TopicCircular:     "circular",
	TopicConstitution: "constitution",
	TopicCulture:      "culture",
	TopicDecree:       "decree",
	TopicGeography:    "geography",
	TopicHistory:      "history",
	TopicLaw:          "law",
	TopicPhilosophy:   "philosophy",
	TopicRegulation:   "regulation",
	TopicOthers:       "others",
}

// AllFilterKey is the filter key used when no topic filter applies.
const AllFilterKey = "all"

func (t Topic) String() string {
	if t < numTopics {
		return topicNames[t]
	}
	return "unknown"
}

// Valid reports whether t is part of the vocabulary.
func (t Topic) Valid() bool {
	return t < numTopics
}

// MarshalText implements encoding.TextMarshaler.
func (t Topic) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Vocabulary returns every topic in declaration order.
func Vocabulary() []Topic {
	out := make([]Topic, numTopics)
	for i := range out {
		out[i] = Topic(i)
	}
	return out
}

// ParseTopic maps a tag to its Topic. Matching ignores case and
// surrounding whitespace.
func ParseTopic(s string) (Topic, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range topicNames {
		if name == s {
			return Topic(i), true
		}
	}
	return 0, false
}

// ParseTopics returns the known topics in tags, in first-seen order.
// Unknown tags and duplicates are dropped. tags is not modified.
func ParseTopics(tags []string) []Topic {
	var seen [numTopics]bool
	out := make([]Topic, 0, len(tags))
	for _, tag := range tags {
		t, ok := ParseTopic(tag)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// TopicNames returns the string form of each topic.
func TopicNames(topics []Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.String()
	}
	return out
}

// FilterKey is the sorted topic names joined with "_", or AllFilterKey when
// topics is empty. Duplicates collapse.
func FilterKey(topics []Topic) string {
	if len(topics) == 0 {
		return AllFilterKey
	}
	names := TopicNames(dedupe(topics))
	sort.Strings(names)
	return strings.Join(names, "_")
}

func dedupe(topics []Topic) []Topic {
	var seen [numTopics]bool
	out := make([]Topic, 0, len(topics))
	for _, t := range topics {
		if !t.Valid() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
