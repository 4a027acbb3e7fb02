package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys lists every configuration key oit understands.
func Keys() []string {
	keys := []string{
		KeyAPIURL, KeyAPITimeout, KeySessionCookieName, KeySessionCookie,
		KeyCSRFCookie, KeyCSRFHeader, KeyPushURL, KeyPushReconnect,
		KeyCacheStaleTime, KeyJSON, KeyVerbose, KeyQuiet, KeyLoginProvider,
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// SetFileValue writes key=value into the YAML file at path, creating the
// file and any parent mappings as needed. Comments and unrelated keys in
// an existing file are preserved.
func SetFileValue(path, key, value string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}

	var doc yaml.Node
	content, err := os.ReadFile(path) // #nosec G304 - path is the user's config file
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level is not a mapping", path)
	}

	node := root
	parts := strings.Split(key, ".")
	for i, part := range parts {
		last := i == len(parts)-1
		child := lookupChild(node, part)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			if last {
				child = &yaml.Node{Kind: yaml.ScalarNode}
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		}
		if last {
			child.Kind = yaml.ScalarNode
			child.Tag = ""
			child.Style = 0
			child.Content = nil
			child.Value = value
			break
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("%s: %s is not a mapping", path, strings.Join(parts[:i+1], "."))
		}
		node = child
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func lookupChild(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Dump renders the merged settings as YAML.
func Dump() ([]byte, error) {
	return yaml.Marshal(AllSettings())
}
