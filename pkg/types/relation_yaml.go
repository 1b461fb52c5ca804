// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"

	"go.yaml.in/yaml/v3"
)

// MarshalYAML encodes the relation as a mapping, null, or sequence.
func (r Relation) MarshalYAML() (interface{}, error) {
	if r.IsMany {
		if r.Many == nil {
			return []Ref{}, nil
		}
		return r.Many, nil
	}
	if r.One == nil {
		return nil, nil
	}
	return r.One, nil
}

// UnmarshalYAML accepts a mapping, null, or sequence.
func (r *Relation) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var many []Ref
		if err := value.Decode(&many); err != nil {
			return fmt.Errorf("decoding relation list: %w", err)
		}
		*r = Relation{Many: many, IsMany: true}
	case yaml.MappingNode:
		var one Ref
		if err := value.Decode(&one); err != nil {
			return fmt.Errorf("decoding relation: %w", err)
		}
		*r = Relation{One: &one}
	case yaml.ScalarNode:
		if value.Tag != "!!null" {
			return fmt.Errorf("relation must be a mapping, sequence, or null, got %q", value.Value)
		}
		*r = Relation{}
	default:
		return fmt.Errorf("unsupported relation node kind %d", value.Kind)
	}
	return nil
}
