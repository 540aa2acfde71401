// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docedit

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseLiteral applies the small literal grammar: a JSON value (quoted
// string, number, boolean, null, or bracketed structure) parses as that
// value; anything else is taken as a raw string.
//
// The JSON text is materialized through the yaml.v3 decoder so the
// result is a node subtree with mapping order preserved — legal because
// JSON is a YAML subset.
func parseLiteral(literal string) *yaml.Node {
	trimmed := strings.TrimSpace(literal)
	if json.Valid([]byte(trimmed)) {
		var root yaml.Node
		if err := yaml.Unmarshal([]byte(trimmed), &root); err == nil &&
			root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
			return root.Content[0]
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: literal}
}
