package taxonomy

import (
	"fmt"
	"strings"

	"ContentRefresher/internal/domain"
)

// agePlaceholder is substituted with the age range label inside query templates.
const agePlaceholder = "{age}"

// Registry keeps the configured topics in declaration order.
type Registry struct {
	topics []domain.Topic
	byKey  map[string]int
}

// NewRegistry builds a registry; duplicate or empty keys are rejected.
func NewRegistry(topics []domain.Topic) (*Registry, error) {
	r := &Registry{byKey: make(map[string]int, len(topics))}
	for _, t := range topics {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a topic.
func (r *Registry) Register(topic domain.Topic) error {
	key := strings.TrimSpace(topic.Key)
	if key == "" {
		return fmt.Errorf("topic key is empty")
	}
	if _, ok := r.byKey[key]; ok {
		return fmt.Errorf("topic %s is registered twice", key)
	}
	if len(topic.Queries) == 0 {
		return fmt.Errorf("topic %s has no search queries", key)
	}
	topic.Key = key
	r.byKey[key] = len(r.topics)
	r.topics = append(r.topics, topic)
	return nil
}

// Resolve returns a topic by key or an error if it is absent.
func (r *Registry) Resolve(key string) (domain.Topic, error) {
	if i, ok := r.byKey[key]; ok {
		return r.topics[i], nil
	}
	return domain.Topic{}, fmt.Errorf("topic %s is not registered", key)
}

// Topics returns the topics in declaration order.
func (r *Registry) Topics() []domain.Topic {
	return append([]domain.Topic(nil), r.topics...)
}

// Scopes builds the topic × age-range matrix, or one age-agnostic scope per
// topic when ageRanges is empty. limit > 0 truncates the result.
func (r *Registry) Scopes(ageRanges []domain.AgeRange, limit int) []domain.Scope {
	var scopes []domain.Scope
	for _, topic := range r.topics {
		if len(ageRanges) == 0 {
			scopes = append(scopes, domain.Scope{Topic: topic})
			continue
		}
		for _, age := range ageRanges {
			scopes = append(scopes, domain.Scope{Topic: topic, AgeRange: age})
		}
	}
	if limit > 0 && len(scopes) > limit {
		scopes = scopes[:limit]
	}
	return scopes
}

// Queries renders the topic's query templates for the scope. Templates without
// a placeholder get the age label appended when the scope has an age range.
func Queries(scope domain.Scope) []string {
	label := scope.AgeRange.Label()
	out := make([]string, 0, len(scope.Topic.Queries))
	for _, q := range scope.Topic.Queries {
		switch {
		case strings.Contains(q, agePlaceholder):
			q = strings.ReplaceAll(q, agePlaceholder, label)
		case label != "":
			q = q + " " + label
		}
		out = append(out, strings.Join(strings.Fields(q), " "))
	}
	return out
}
