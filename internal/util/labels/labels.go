// Package labels builds the tag sets attached to AWS resources created by
// the operator.
//
// Every resource carries a managed-by tag so that resources created by the
// operator can be found and cleaned up. Compute instances also carry a Name
// tag, which the AWS console shows as the instance name.
package labels

import "sort"

// Standard tag keys.
const (
	// KeyManagedBy identifies the management system.
	KeyManagedBy = "managed-by"

	// KeyName is the tag AWS displays as the resource name.
	KeyName = "Name"
)

// ManagedByOperator is the KeyManagedBy value for operator-created resources.
const ManagedByOperator = "iacaws"

// Tag is a single key/value pair in a stable order.
type Tag struct {
	Key   string
	Value string
}

// LabelBuilder provides a fluent interface for building resource tags.
type LabelBuilder struct {
	extra  map[string]string
	labels map[string]string
}

// NewLabelBuilder creates a builder with the managed-by tag pre-set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		extra: map[string]string{},
		labels: map[string]string{
			KeyManagedBy: ManagedByOperator,
		},
	}
}

// WithName sets the Name tag. An empty name leaves the tag unset.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	if name != "" {
		lb.labels[KeyName] = name
	}
	return lb
}

// Merge adds user-supplied tags. They never replace tags set by the
// builder itself.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.extra[k] = v
	}
	return lb
}

// Build returns a copy of the tag map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels)+len(lb.extra))
	for k, v := range lb.extra {
		result[k] = v
	}
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Tags returns the tags sorted by key, so API requests are deterministic.
func (lb *LabelBuilder) Tags() []Tag {
	m := lb.Build()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, Tag{Key: k, Value: m[k]})
	}
	return tags
}
