// Package msgcat holds the user-facing message templates. Defaults are embedded
// per language and can be overridden key by key from a directory of YAML files.
package msgcat

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.*.yaml
var embedded embed.FS

const DefaultLang = "ko"

type Catalog struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// New loads the embedded messages for lang (falling back to DefaultLang) and
// then applies every *.yaml / *.yml file in overrideDir, if given.
func New(lang, overrideDir string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*template.Template)}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLang
	}
	raw, err := embedded.ReadFile("messages." + lang + ".yaml")
	if err != nil {
		raw, err = embedded.ReadFile("messages." + DefaultLang + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read embedded messages: %w", err)
		}
	}
	if err := c.merge(raw, "embedded"); err != nil {
		return nil, err
	}

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := c.mergeDir(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) mergeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read message dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.merge(raw, name); err != nil {
			return err
		}
	}
	return nil
}

// merge parses YAML, flattens nested maps into dot keys and compiles every leaf.
func (c *Catalog) merge(raw []byte, source string) error {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	flat := make(map[string]string)
	if err := flatten(tree, "", flat); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	compiled := make(map[string]*template.Template, len(flat))
	for key, text := range flat {
		t, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("%s: template %s: %w", source, key, err)
		}
		compiled[key] = t
	}
	c.mu.Lock()
	for k, t := range compiled {
		c.templates[k] = t
	}
	c.mu.Unlock()
	return nil
}

func flatten(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return fmt.Errorf("top-level string without key")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	c.mu.RLock()
	t, ok := c.templates[strings.TrimSpace(key)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return sb.String(), nil
}

// Text renders key and falls back to the key itself on error.
func (c *Catalog) Text(key string, data any) string {
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}

func (c *Catalog) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.templates[key]
	return ok
}
