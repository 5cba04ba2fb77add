package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hobson/bitcrawl/internal/record"
)

// ErrBadSpec reports an extraction specification of an unsupported shape.
var ErrBadSpec = errors.New("bad extraction spec")

// DefaultName names the fields of Single and Indexed specs when the caller gives none.
const DefaultName = "data"

// Kind tags the shape of a Spec.
type Kind int

const (
	KindSingle Kind = iota
	KindIndexed
	KindNamed
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindIndexed:
		return "indexed"
	case KindNamed:
		return "named"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is a named rule.
type Field struct {
	Name string
	Rule Rule
}

// Spec is an extraction specification in one of three shapes: named rules,
// an indexed list of rules, or a single rule.
type Spec struct {
	kind  Kind
	named []Field
	rules []Rule
}

// Named builds a spec whose fields keep the given names and order.
func Named(fields ...Field) Spec {
	return Spec{kind: KindNamed, named: append([]Field(nil), fields...)}
}

// NamedMap builds a named spec from a map, ordering fields by name.
func NamedMap(m map[string]Rule) Spec {
	fields := make([]Field, 0, len(m))
	for name, r := range m {
		fields = append(fields, Field{Name: name, Rule: r})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return Spec{kind: KindNamed, named: fields}
}

// Indexed builds a spec whose fields are named defaultName+index.
func Indexed(rules ...Rule) Spec {
	return Spec{kind: KindIndexed, rules: append([]Rule(nil), rules...)}
}

// Single builds a spec with one field named after the default name.
func Single(r Rule) Spec {
	return Spec{kind: KindSingle, rules: []Rule{r}}
}

// Kind returns the shape of the spec.
func (s Spec) Kind() Kind { return s.kind }

// Len returns the number of rules in the spec.
func (s Spec) Len() int {
	if s.kind == KindNamed {
		return len(s.named)
	}
	return len(s.rules)
}

// Fields resolves the spec to an ordered list of named rules.
func (s Spec) Fields(defaultName string) []Field {
	if defaultName == "" {
		defaultName = DefaultName
	}
	switch s.kind {
	case KindNamed:
		return append([]Field(nil), s.named...)
	case KindIndexed:
		out := make([]Field, len(s.rules))
		for i, r := range s.rules {
			out[i] = Field{Name: fmt.Sprintf("%s%d", defaultName, i), Rule: r}
		}
		return out
	default:
		if len(s.rules) == 0 {
			return nil
		}
		return []Field{{Name: defaultName, Rule: s.rules[0]}}
	}
}

// Validate compiles every rule and rejects field names reserved for metadata.
func (s Spec) Validate() error {
	for _, f := range s.Fields(DefaultName) {
		if f.Name == record.KeyDatetime || f.Name == record.KeyURL {
			return fmt.Errorf("%w: field name %q is reserved", ErrBadSpec, f.Name)
		}
		if err := f.Rule.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func ruleFromParts(parts []string) (Rule, error) {
	switch len(parts) {
	case 2:
		return Rule{Prefix: parts[0], Value: parts[1]}, nil
	case 3:
		return Rule{Prefix: parts[0], Value: parts[1], Suffix: parts[2]}, nil
	default:
		return Rule{}, fmt.Errorf("%w: rule needs 2 or 3 patterns, got %d", ErrBadSpec, len(parts))
	}
}

func (r Rule) parts() []string {
	if r.Suffix != "" {
		return []string{r.Prefix, r.Value, r.Suffix}
	}
	return []string{r.Prefix, r.Value}
}

// UnmarshalYAML resolves the spec shape from the node kind:
// a mapping is Named, a list of lists is Indexed, a flat list is Single.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		fields := make([]Field, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			var parts []string
			if err := node.Content[i+1].Decode(&parts); err != nil {
				return fmt.Errorf("%w: field %q: %v", ErrBadSpec, name, err)
			}
			r, err := ruleFromParts(parts)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			fields = append(fields, Field{Name: name, Rule: r})
		}
		*s = Named(fields...)
		return nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return fmt.Errorf("%w: empty list", ErrBadSpec)
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			var lists [][]string
			if err := node.Decode(&lists); err != nil {
				return fmt.Errorf("%w: %v", ErrBadSpec, err)
			}
			return s.setIndexed(lists)
		}
		var parts []string
		if err := node.Decode(&parts); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSpec, err)
		}
		r, err := ruleFromParts(parts)
		if err != nil {
			return err
		}
		*s = Single(r)
		return nil

	default:
		return fmt.Errorf("%w: expected mapping or list at line %d", ErrBadSpec, node.Line)
	}
}

func (s *Spec) setIndexed(lists [][]string) error {
	rules := make([]Rule, 0, len(lists))
	for i, parts := range lists {
		r, err := ruleFromParts(parts)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	*s = Indexed(rules...)
	return nil
}

// MarshalYAML writes the spec back in the shape it was read from.
func (s Spec) MarshalYAML() (interface{}, error) {
	switch s.kind {
	case KindNamed:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range s.named {
			key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.Name}
			val := &yaml.Node{}
			if err := val.Encode(f.Rule.parts()); err != nil {
				return nil, err
			}
			node.Content = append(node.Content, key, val)
		}
		return node, nil
	case KindIndexed:
		lists := make([][]string, len(s.rules))
		for i, r := range s.rules {
			lists[i] = r.parts()
		}
		return lists, nil
	default:
		if len(s.rules) == 0 {
			return nil, nil
		}
		return s.rules[0].parts(), nil
	}
}

// UnmarshalJSON accepts the same three shapes as UnmarshalYAML. Object key
// order is kept.
func (s *Spec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty document", ErrBadSpec)
	}

	switch data[0] {
	case '{':
		dec := json.NewDecoder(bytes.NewReader(data))
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSpec, err)
		}
		var fields []Field
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadSpec, err)
			}
			name, _ := tok.(string)
			var parts []string
			if err := dec.Decode(&parts); err != nil {
				return fmt.Errorf("%w: field %q: %v", ErrBadSpec, name, err)
			}
			r, err := ruleFromParts(parts)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			fields = append(fields, Field{Name: name, Rule: r})
		}
		*s = Named(fields...)
		return nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSpec, err)
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: empty list", ErrBadSpec)
		}
		if first := bytes.TrimSpace(items[0]); len(first) > 0 && first[0] == '[' {
			var lists [][]string
			if err := json.Unmarshal(data, &lists); err != nil {
				return fmt.Errorf("%w: %v", ErrBadSpec, err)
			}
			return s.setIndexed(lists)
		}
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSpec, err)
		}
		r, err := ruleFromParts(parts)
		if err != nil {
			return err
		}
		*s = Single(r)
		return nil

	default:
		return fmt.Errorf("%w: expected object or array", ErrBadSpec)
	}
}

// MarshalJSON writes the spec in its original shape, keeping field order.
func (s Spec) MarshalJSON() ([]byte, error) {
	if s.kind != KindNamed {
		v, _ := s.MarshalYAML()
		return json.Marshal(v)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.named {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Rule.parts())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
