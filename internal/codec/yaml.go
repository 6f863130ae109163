// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"math/big"
	"strings"

	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a single YAML document. Mappings become dicts in
// document order. An empty document decodes to None.
func DecodeYAML(s string) (starlark.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind == 0 {
		return starlark.None, nil
	}
	return fromNode(&doc, 0)
}

func fromNode(n *yaml.Node, depth int) (starlark.Value, error) {
	if depth > maxDepth {
		return nil, ErrCircular
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return starlark.None, nil
		}
		return fromNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		elems := make([]starlark.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c, depth+1)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return starlark.NewList(elems), nil
	case yaml.MappingNode:
		d := starlark.NewDict(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := fromNode(n.Content[i], depth+1)
			if err != nil {
				return nil, err
			}
			v, err := fromNode(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(k, v); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i].Line, err)
			}
		}
		return d, nil
	case yaml.ScalarNode:
		return fromScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func fromScalar(n *yaml.Node) (starlark.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return starlark.None, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return starlark.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return starlark.MakeInt64(i), nil
		}
		if z, ok := new(big.Int).SetString(strings.ReplaceAll(n.Value, "_", ""), 0); ok {
			return starlark.MakeBigInt(z), nil
		}
		return starlark.String(n.Value), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return starlark.Float(f), nil
	}
	return starlark.String(n.Value), nil
}

// EncodeYAML renders v as a YAML document without the trailing newline.
func EncodeYAML(v starlark.Value) (string, error) {
	n, err := toNode(v, 0)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func toNode(v starlark.Value, depth int) (*yaml.Node, error) {
	if depth > maxDepth {
		return nil, ErrCircular
	}
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch v := v.(type) {
	case starlark.NoneType:
		return scalar("!!null", "null"), nil
	case starlark.Bool:
		if v {
			return scalar("!!bool", "true"), nil
		}
		return scalar("!!bool", "false"), nil
	case starlark.Int:
		return scalar("!!int", v.String()), nil
	case starlark.Float:
		return scalar("!!float", v.String()), nil
	case starlark.String:
		return scalar("!!str", string(v)), nil
	case starlark.Bytes:
		return scalar("!!str", string(v)), nil
	case *starlark.List:
		return seqNode(v, depth)
	case starlark.Tuple:
		return seqNode(v, depth)
	case *starlark.Dict:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, item := range v.Items() {
			k, err := toNode(item[0], depth+1)
			if err != nil {
				return nil, err
			}
			val, err := toNode(item[1], depth+1)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, k, val)
		}
		return n, nil
	}
	return scalar("!!str", v.String()), nil
}

func seqNode(seq starlark.Indexable, depth int) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i := 0; i < seq.Len(); i++ {
		c, err := toNode(seq.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, c)
	}
	return n, nil
}
