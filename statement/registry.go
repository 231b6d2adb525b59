package statement

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnb-chain/proof-relayer/codec"
)

// Registry resolves a statement key (the decimal statement id) to its template.
type Registry interface {
	Lookup(statementKey string) (*Template, bool)
}

// MapRegistry is a Registry loaded once at start-up and never mutated afterwards.
type MapRegistry struct {
	templates map[string]*Template
}

func NewMapRegistry(templates ...*Template) *MapRegistry {
	r := &MapRegistry{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		r.templates[t.Key] = t
	}
	return r
}

func (r *MapRegistry) Lookup(statementKey string) (*Template, bool) {
	t, ok := r.templates[statementKey]
	return t, ok
}

func (r *MapRegistry) Len() int {
	return len(r.templates)
}

type registryFile struct {
	Statements []statementEntry `json:"statements"`
}

type statementEntry struct {
	StatementKey string          `json:"statement_key"`
	Name         string          `json:"name"`
	Wrap         WrapRule        `json:"wrap"`
	TemplatePath string          `json:"template_path"` // relative to the registry file
	Template     json.RawMessage `json:"template"`
}

// LoadRegistry reads the registry file. Template shapes are either inline or loaded from
// template_path.
func LoadRegistry(path string) (*MapRegistry, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file registryFile
	if err = json.Unmarshal(bz, &file); err != nil {
		return nil, fmt.Errorf("failed to parse statement registry %s: %w", path, err)
	}
	templates := make([]*Template, 0, len(file.Statements))
	seen := make(map[string]bool)
	for _, entry := range file.Statements {
		if entry.StatementKey == "" {
			return nil, fmt.Errorf("statement registry %s has an entry without statement_key", path)
		}
		if seen[entry.StatementKey] {
			return nil, fmt.Errorf("duplicate statement %s in registry %s", entry.StatementKey, path)
		}
		seen[entry.StatementKey] = true
		if !entry.Wrap.Valid() {
			return nil, fmt.Errorf("statement %s has unsupported wrap rule %q", entry.StatementKey, entry.Wrap)
		}
		t := &Template{
			Key:  entry.StatementKey,
			Name: entry.Name,
			Wrap: entry.Wrap,
		}
		if entry.Wrap == WrapDecoded {
			if t.Shape, err = loadShape(filepath.Dir(path), entry); err != nil {
				return nil, err
			}
		}
		templates = append(templates, t)
	}
	return NewMapRegistry(templates...), nil
}

func loadShape(baseDir string, entry statementEntry) (interface{}, error) {
	raw := []byte(entry.Template)
	if entry.TemplatePath != "" {
		p := entry.TemplatePath
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		bz, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read template of statement %s: %w", entry.StatementKey, err)
		}
		raw = bz
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("statement %s uses %s wrapping but has no template", entry.StatementKey, WrapDecoded)
	}
	return codec.ParseJSON(raw)
}
