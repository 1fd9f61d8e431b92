package docparser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// configFmt identifies how a config file's key/value pairs are decoded.
type configFmt string

const (
	fmtTOML configFmt = "toml"
	fmtYAML configFmt = "yaml"
	fmtJSON configFmt = "json"
	fmtINI  configFmt = "ini" // covers .ini/.env/.cfg/.conf line-based key=value files
)

func configFormat(ext string) configFmt {
	switch ext {
	case ".toml":
		return fmtTOML
	case ".yaml", ".yml":
		return fmtYAML
	case ".json":
		return fmtJSON
	default:
		return fmtINI
	}
}

// envRefPattern matches ${VAR} and $VAR style environment-variable
// references inside a config value.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func envReferences(value string) []string {
	matches := envRefPattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var refs []string
	for _, m := range matches {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

// configChunker implements Chunker for structured config files: it decodes
// the whole file, flattens nested keys with dot-separated paths, and emits
// one NodeConfigKey DocumentNode per leaf, with any referenced environment
// variable recorded in metadata.
type configChunker struct {
	opts   Options
	format configFmt
}

func (c *configChunker) Chunk(path string, source []byte) ([]codemodel.DocumentNode, error) {
	pairs, err := decodeConfig(source, c.format)
	if err != nil {
		return nil, fmt.Errorf("docparser: decode %s: %w", path, err)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	lines := strings.Split(string(source), "\n")
	nodes := make([]codemodel.DocumentNode, 0, len(pairs))
	for i, p := range pairs {
		line := findKeyLine(lines, p.key)
		metadata := map[string]interface{}{
			"config_key":   p.key,
			"config_value": p.value,
		}
		if refs := envReferences(p.value); len(refs) > 0 {
			metadata["env_references"] = refs
		}
		nodes = append(nodes, codemodel.NewDocumentNode(codemodel.DocumentNode{
			NodeType:     codemodel.NodeConfigKey,
			Content:      fmt.Sprintf("%s = %s", p.key, p.value),
			FilePath:     path,
			RelativePath: path,
			StartLine:    line,
			EndLine:      line,
			ChunkIndex:   i,
			TotalChunks:  len(pairs),
			Metadata:     metadata,
		}))
	}
	return nodes, nil
}

type configPair struct {
	key   string
	value string
}

func decodeConfig(source []byte, format configFmt) ([]configPair, error) {
	switch format {
	case fmtTOML:
		var raw map[string]interface{}
		if err := toml.Unmarshal(source, &raw); err != nil {
			return nil, err
		}
		return flatten("", raw), nil
	case fmtYAML:
		var raw map[string]interface{}
		if err := yaml.Unmarshal(source, &raw); err != nil {
			return nil, err
		}
		return flatten("", raw), nil
	case fmtJSON:
		var raw map[string]interface{}
		if err := json.Unmarshal(source, &raw); err != nil {
			return nil, err
		}
		return flatten("", raw), nil
	default:
		return decodeINI(source), nil
	}
}

// flatten walks a decoded document into dot-separated leaf key/value pairs.
// Lists are rendered as their JSON form rather than expanded per-element,
// since config_key nodes are meant for scalar settings, not sequence
// indices.
func flatten(prefix string, value interface{}) []configPair {
	switch v := value.(type) {
	case map[string]interface{}:
		var pairs []configPair
		for key, val := range v {
			full := key
			if prefix != "" {
				full = prefix + "." + key
			}
			pairs = append(pairs, flatten(full, val)...)
		}
		return pairs
	default:
		return []configPair{{key: prefix, value: renderScalar(v)}}
	}
}

func renderScalar(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// decodeINI parses line-based key=value config (.ini/.env/.cfg/.conf),
// tracking [section] headers to qualify keys (see DESIGN.md).
func decodeINI(source []byte) []configPair {
	var pairs []configPair
	section := ""
	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			continue
		}
		idx := strings.IndexAny(trimmed, "=:")
		if idx == -1 {
			continue
		}
		key := strings.TrimSpace(trimmed[:idx])
		val := strings.Trim(strings.TrimSpace(trimmed[idx+1:]), `"'`)
		if key == "" {
			continue
		}
		if section != "" {
			key = section + "." + key
		}
		pairs = append(pairs, configPair{key: key, value: val})
	}
	return pairs
}

func findKeyLine(lines []string, key string) int {
	leaf := key
	if idx := strings.LastIndex(key, "."); idx != -1 {
		leaf = key[idx+1:]
	}
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, leaf+" ") || strings.HasPrefix(trimmed, leaf+"=") ||
			strings.HasPrefix(trimmed, leaf+":") || strings.HasPrefix(trimmed, `"`+leaf+`"`) {
			return i + 1
		}
	}
	return 1
}
