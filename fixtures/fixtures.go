// Package fixtures reads raw items from files so they can be registered
// without a remote collection.
//
// Supported formats, by extension:
//
//	.json        a single object or an array of objects
//	.yaml, .yml  a single mapping or a sequence of mappings
//	.toml        an [[items]] array of tables
package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/manager"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported fixture format")

// LoadFile reads every raw item in path.
func LoadFile(path string) ([]manager.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", path)
	}

	var raws []manager.Raw
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		raws, err = decodeJSON(data)
	case ".yaml", ".yml":
		raws, err = decodeYAML(data)
	case ".toml":
		raws, err = decodeTOML(data)
	default:
		return nil, errors.WithHintf(errors.Wrapf(ErrUnsupportedFormat, "%s", path), "use .json, .yaml, .yml or .toml")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode fixture %s", path)
	}
	return raws, nil
}

// LoadDir reads every supported file directly under dir in name order and
// concatenates their items.
func LoadDir(dir string) ([]manager.Raw, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture dir %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var all []manager.Raw
	for _, name := range names {
		raws, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		all = append(all, raws...)
	}
	return all, nil
}

// Supported reports whether LoadFile can read name.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

func decodeJSON(data []byte) ([]manager.Raw, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var raws []manager.Raw
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	var raw manager.Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return []manager.Raw{raw}, nil
}

func decodeYAML(data []byte) ([]manager.Raw, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var raws []manager.Raw
		if err := root.Decode(&raws); err != nil {
			return nil, err
		}
		return normalizeAll(raws), nil
	case yaml.MappingNode:
		var raw manager.Raw
		if err := root.Decode(&raw); err != nil {
			return nil, err
		}
		return normalizeAll([]manager.Raw{raw}), nil
	}
	return nil, errors.Newf("yaml root must be a mapping or a sequence, line %d", root.Line)
}

type tomlFile struct {
	Items []map[string]any `toml:"items"`
}

func decodeTOML(data []byte) ([]manager.Raw, error) {
	var f tomlFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("unknown top-level keys: %v", undecoded)
	}
	raws := make([]manager.Raw, len(f.Items))
	for i, item := range f.Items {
		raws[i] = item
	}
	return normalizeAll(raws), nil
}

func normalizeAll(raws []manager.Raw) []manager.Raw {
	for i, raw := range raws {
		raws[i] = normalize(raw).(map[string]any)
	}
	return raws
}

// normalize converts decoder-specific shapes into what encoding/json would
// produce: map[string]any objects, []any arrays, float64 numbers.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[toString(k)] = normalize(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	}
	return v
}

func toString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	data, _ := json.Marshal(k)
	return string(data)
}
