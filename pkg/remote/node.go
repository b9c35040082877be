package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ObjectNode is one node of the remote object tree as described by the
// server. Children are addressed by the keys "0", "1", ... and the sequence
// ends at the first missing index.
type ObjectNode struct {
	Name        string
	Class       string
	IsContainer bool

	fields   map[string]json.RawMessage
	raw      json.RawMessage
	children []*ObjectNode
}

// DecodeNode parses one node description. Children are decoded eagerly so
// that a malformed child is reported as part of the parent's parse error.
func DecodeNode(data []byte) (*ObjectNode, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("node description is null")
	}

	node := &ObjectNode{
		fields: fields,
		raw:    append(json.RawMessage(nil), bytes.TrimSpace(data)...),
	}

	if v, ok := fields["Name"]; ok {
		node.Name = decodeString(v)
	}
	if v, ok := fields["Class"]; ok {
		node.Class = decodeString(v)
	}
	if v, ok := fields["IsContainer"]; ok {
		node.IsContainer = decodeFlag(v)
	}

	for i := 0; ; i++ {
		v, ok := fields[strconv.Itoa(i)]
		if !ok {
			break
		}
		child, err := DecodeNode(v)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		node.children = append(node.children, child)
	}

	return node, nil
}

// Children returns the contiguous children "0".."n-1".
func (n *ObjectNode) Children() []*ObjectNode {
	return n.children
}

// HasChildren reports whether the node carries at least child "0".
func (n *ObjectNode) HasChildren() bool {
	return len(n.children) > 0
}

// Field returns the raw value of a field of the node description.
func (n *ObjectNode) Field(key string) (json.RawMessage, bool) {
	v, ok := n.fields[key]
	return v, ok
}

// Keys returns the non-index field names of the node description in
// lexical order.
func (n *ObjectNode) Keys() []string {
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		if _, err := strconv.Atoi(k); err == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the node description exactly as received.
func (n *ObjectNode) Raw() json.RawMessage {
	return n.raw
}

// MarshalJSON returns the original description.
func (n *ObjectNode) MarshalJSON() ([]byte, error) {
	if n.raw == nil {
		return []byte("null"), nil
	}
	return n.raw, nil
}

// Label is the text shown for the node in the navigation tree.
func (n *ObjectNode) Label() string {
	return fmt.Sprintf("%s (%s)", n.Name, n.Class)
}

func decodeString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.Trim(string(v), `"`)
}

// decodeFlag accepts 1, true and "1"/"true" as set. Anything else,
// including 0, false and null, is a cleared flag.
func decodeFlag(v json.RawMessage) bool {
	switch strings.TrimSpace(string(v)) {
	case "1", "true", `"1"`, `"true"`:
		return true
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f == 1
	}
	return false
}
