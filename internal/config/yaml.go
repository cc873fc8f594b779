package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either the long form
//
//	config:
//	  - key: file_name
//	    value: in.csv
//
// or a plain mapping (file_name: in.csv), keeping the document order.
func (c *Configuration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: configuration must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		switch {
		case k.Value == "xml" && v.Kind == yaml.ScalarNode:
			c.XML = v.Value
		case k.Value == "config" && v.Kind == yaml.SequenceNode:
			var items []ConfigItem
			if err := v.Decode(&items); err != nil {
				return err
			}
			for _, item := range items {
				c.Insert(item.Key, item.Value)
			}
		case v.Kind == yaml.ScalarNode:
			c.Insert(k.Value, v.Value)
		default:
			return fmt.Errorf("line %d: configuration value for %q must be a scalar", v.Line, k.Value)
		}
	}
	return nil
}
