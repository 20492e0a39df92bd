package enrich

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeFrontmatter merges generated metadata into the existing raw YAML
// frontmatter block and re-encodes it. The existing mapping is edited as
// a yaml.Node so unrecognized keys keep their order and value verbatim.
//
// Rules:
//   - created: existing value always wins; set from createdDate when absent
//   - title, description: replaced on force, filled only when missing otherwise
//   - tags: on force, merged per policy; otherwise filled only when missing
func mergeFrontmatter(raw []byte, gen generated, createdDate string, force bool, policy TagPolicy) (string, error) {
	mapping, err := mappingNode(raw)
	if err != nil {
		return "", err
	}

	if findValue(mapping, "created") == nil && createdDate != "" {
		setScalar(mapping, "created", createdDate)
	}

	for key, val := range map[string]string{
		"title":       gen.Title,
		"description": gen.Description,
	} {
		if force || findValue(mapping, key) == nil {
			setScalar(mapping, key, val)
		}
	}

	existingTags := findValue(mapping, "tags")
	switch {
	case existingTags == nil:
		setSequence(mapping, "tags", gen.Tags)
	case force:
		switch policy {
		case TagReplace:
			setSequence(mapping, "tags", gen.Tags)
		case TagAppend:
			setSequence(mapping, "tags", appendTags(existingTags, gen.Tags))
		case TagKeep:
			// Existing tags stay as they are.
		}
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("enrich: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("enrich: encode frontmatter: %w", err)
	}
	return buf.String(), nil
}

// mappingNode parses raw into a YAML mapping node, or returns an empty
// mapping when raw is nil or not a mapping.
func mappingNode(raw []byte) (*yaml.Node, error) {
	empty := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(bytes.TrimSpace(raw)) == 0 {
		return empty, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		// Malformed frontmatter is recovered, not fatal.
		return empty, nil
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return empty, nil
	}
	return doc.Content[0], nil
}

// findValue returns the value node for key, or nil when absent.
func findValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// setScalar sets key to a scalar value, updating in place when the key
// exists and appending otherwise.
func setScalar(mapping *yaml.Node, key, value string) {
	if v := findValue(mapping, key); v != nil {
		*v = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
}

// setSequence sets key to a string sequence, updating in place when the
// key exists and appending otherwise.
func setSequence(mapping *yaml.Node, key string, values []string) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
	}
	if v := findValue(mapping, key); v != nil {
		*v = *seq
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		seq)
}

// appendTags unions existing sequence values with generated tags,
// deduplicated case-insensitively, existing first.
func appendTags(existing *yaml.Node, gen []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if existing.Kind == yaml.SequenceNode {
		for _, n := range existing.Content {
			add(n.Value)
		}
	} else if existing.Kind == yaml.ScalarNode {
		add(existing.Value)
	}
	for _, t := range gen {
		add(t)
	}
	return out
}
