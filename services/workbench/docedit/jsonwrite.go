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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const jsonIndent = "  "

// writeJSON renders a node subtree as JSON with 2-space indent and keys
// in node order.
func writeJSON(buf *bytes.Buffer, node *yaml.Node, depth int) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("{}")
			return nil
		}
		return writeJSON(buf, node.Content[0], depth)

	case yaml.AliasNode:
		if node.Alias == nil {
			return fmt.Errorf("dangling alias node %q", node.Value)
		}
		return writeJSON(buf, node.Alias, depth)

	case yaml.MappingNode:
		if len(node.Content) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i := 0; i+1 < len(node.Content); i += 2 {
			buf.WriteString(strings.Repeat(jsonIndent, depth+1))
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteString(": ")
			if err := writeJSON(buf, node.Content[i+1], depth+1); err != nil {
				return err
			}
			if i+2 < len(node.Content) {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(jsonIndent, depth))
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range node.Content {
			buf.WriteString(strings.Repeat(jsonIndent, depth+1))
			if err := writeJSON(buf, item, depth+1); err != nil {
				return err
			}
			if i+1 < len(node.Content) {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(jsonIndent, depth))
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		return writeJSONScalar(buf, node)

	default:
		return fmt.Errorf("unsupported node kind %d", node.Kind)
	}
}

// writeJSONScalar renders one scalar. Numeric and boolean values pass
// through raw when they are already valid JSON tokens; everything else
// is emitted as a JSON string.
func writeJSONScalar(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Tag {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!bool":
		switch strings.ToLower(node.Value) {
		case "true":
			buf.WriteString("true")
			return nil
		case "false":
			buf.WriteString("false")
			return nil
		}
	case "!!int", "!!float":
		if json.Valid([]byte(node.Value)) {
			buf.WriteString(node.Value)
			return nil
		}
	}
	s, err := json.Marshal(node.Value)
	if err != nil {
		return err
	}
	buf.Write(s)
	return nil
}
