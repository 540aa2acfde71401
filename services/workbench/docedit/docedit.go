// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package docedit mutates structured documents (JSON or YAML) by dotted
// key path.
//
// # Description
//
// Documents are held as yaml.v3 node trees, which preserve mapping key
// order (and, for YAML, comments) so that re-serialization does not
// reformat untouched siblings. JSON is parsed through the same node
// machinery (JSON is a YAML subset) and re-serialized by a dedicated
// writer with a fixed 2-space indent.
//
// Key paths address mapping nodes only; there is no implicit array
// indexing. Set creates intermediate mappings as needed and overwrites
// whatever previously lived at the leaf. Delete removes the leaf or the
// whole subtree when the path stops at an intermediate mapping; deleting
// an absent path reports a no-op instead of failing.
package docedit

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the document syntax.
type Format string

const (
	// FormatJSON is a JSON document, serialized with 2-space indent.
	FormatJSON Format = "json"

	// FormatYAML is a YAML document, serialized with 2-space indent.
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user-supplied string (or file extension) to a
// Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported document format %q (want json or yaml)", s)
	}
}

// Document is a parsed structured document open for key-path edits.
type Document struct {
	format Format
	doc    *yaml.Node // DocumentNode wrapping the root mapping
}

// Parse loads file bytes into an editable Document. Empty (or
// whitespace-only) input yields an empty top-level mapping, so edits on
// a missing file start from scratch the way a fresh document would.
func Parse(data []byte, format Format) (*Document, error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	d := &Document{format: format}
	if len(bytes.TrimSpace(data)) == 0 {
		d.doc = &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{emptyMapping()},
		}
		return d, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s document: %w", format, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{emptyMapping()},
		}
	}
	d.doc = &root
	return d, nil
}

// root returns the document's top-level node.
func (d *Document) root() *yaml.Node {
	return d.doc.Content[0]
}

// Set parses literal with the JSON-style literal grammar (falling back
// to a raw string) and assigns it at keyPath, creating intermediate
// mappings as needed. Any previous value or subtree at the path is
// overwritten, including non-mapping intermediates in the way.
func (d *Document) Set(keyPath, literal string) error {
	segments, err := splitKeyPath(keyPath)
	if err != nil {
		return err
	}
	cur := d.root()
	if cur.Kind != yaml.MappingNode {
		return fmt.Errorf("document root is not a mapping, cannot set %q", keyPath)
	}

	for _, seg := range segments[:len(segments)-1] {
		next := mappingValue(cur, seg)
		if next == nil || next.Kind != yaml.MappingNode {
			// Absent, or a scalar/sequence blocking the path: replace
			// with a fresh mapping (set overwrites).
			next = emptyMapping()
			mappingSet(cur, seg, next)
		}
		cur = next
	}

	mappingSet(cur, segments[len(segments)-1], parseLiteral(literal))
	return nil
}

// Delete removes the node at keyPath, subtree included when the path
// stops at an intermediate mapping. It reports false, without error,
// when the path does not exist. Intermediate mappings left empty by the
// removal are pruned, so set-then-delete of the same path is a net
// no-op on the document.
func (d *Document) Delete(keyPath string) (bool, error) {
	segments, err := splitKeyPath(keyPath)
	if err != nil {
		return false, err
	}
	cur := d.root()
	if cur.Kind != yaml.MappingNode {
		return false, nil
	}

	// Remember the chain so empty intermediates can be pruned after a
	// successful delete.
	chain := []*yaml.Node{cur}
	for _, seg := range segments[:len(segments)-1] {
		next := mappingValue(cur, seg)
		if next == nil || next.Kind != yaml.MappingNode {
			return false, nil
		}
		cur = next
		chain = append(chain, cur)
	}

	if !mappingDelete(cur, segments[len(segments)-1]) {
		return false, nil
	}
	for i := len(chain) - 1; i > 0; i-- {
		if len(chain[i].Content) != 0 {
			break
		}
		mappingDelete(chain[i-1], segments[i-1])
	}
	return true, nil
}

// Serialize renders the document in its format with 2-space indent and
// key order equal to last-written order. This output is exactly what
// feeds the diff engine.
func (d *Document) Serialize() ([]byte, error) {
	switch d.format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.doc.Content[0]); err != nil {
			return nil, fmt.Errorf("serializing yaml document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("serializing yaml document: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		var buf bytes.Buffer
		if err := writeJSON(&buf, d.root(), 0); err != nil {
			return nil, fmt.Errorf("serializing json document: %w", err)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", d.format)
	}
}

// splitKeyPath validates and splits a dotted key path. Keys themselves
// cannot contain dots; that matches the addressing the CLI exposes.
func splitKeyPath(keyPath string) ([]string, error) {
	if strings.TrimSpace(keyPath) == "" {
		return nil, fmt.Errorf("empty key path")
	}
	segments := strings.Split(keyPath, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("key path %q has an empty segment", keyPath)
		}
	}
	return segments, nil
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// mappingValue returns the value node for key, or nil. Mapping content
// alternates key and value nodes.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// mappingSet replaces the value for key, or appends the pair, keeping
// existing keys in place so untouched siblings keep their order.
func mappingSet(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	mapping.Content = append(mapping.Content, keyNode, value)
}

// mappingDelete removes the key/value pair; reports whether it existed.
func mappingDelete(mapping *yaml.Node, key string) bool {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
			return true
		}
	}
	return false
}
