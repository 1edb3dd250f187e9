package parser

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// Compiler turns a raw Definition into a SignatureDatabase
type Compiler struct {
	regexes *regexCache
}

// NewCompiler creates a compiler whose expressions give up after matchTimeout
func NewCompiler(matchTimeout time.Duration) *Compiler {
	return &Compiler{regexes: newRegexCache(matchTimeout)}
}

// LoadDefinition decodes technologies.json
func LoadDefinition(r io.Reader) (*models.Definition, error) {
	var def models.Definition
	if err := json.NewDecoder(r).Decode(&def); err != nil {
		return nil, &SignatureCompileError{Field: "definition", Cause: err}
	}
	if def.Technologies == nil {
		return nil, &SignatureCompileError{Field: "definition", Cause: errors.New("missing technologies")}
	}
	return &def, nil
}

// CompileDefinition compiles def with the default match timeout
func CompileDefinition(def *models.Definition) (*models.SignatureDatabase, error) {
	return NewCompiler(DefaultMatchTimeout).Compile(def)
}

// Compile compiles every technology of def. The first malformed
// signature aborts the build with a *SignatureCompileError.
func (c *Compiler) Compile(def *models.Definition) (*models.SignatureDatabase, error) {
	categories := make(map[int]string, len(def.Categories))
	for idStr, category := range def.Categories {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, &SignatureCompileError{Field: "categories", Pattern: idStr, Cause: err}
		}
		if category != nil {
			categories[id] = category.Name
		}
	}

	names := make([]string, 0, len(def.Technologies))
	for name := range def.Technologies {
		names = append(names, name)
	}
	sort.Strings(names)

	technologies := make(map[string]*models.TechnologySignature, len(names))
	for _, name := range names {
		raw := def.Technologies[name]
		if raw == nil {
			return nil, &SignatureCompileError{Technology: name, Field: "technology", Cause: errors.New("empty entry")}
		}

		tech, err := c.compileTechnology(name, raw, categories)
		if err != nil {
			return nil, err
		}
		technologies[name] = tech
	}

	return models.NewSignatureDatabase(technologies, categories, names), nil
}

func (c *Compiler) compileTechnology(name string, raw *models.RawTechnology, categories map[int]string) (*models.TechnologySignature, error) {
	tech := &models.TechnologySignature{
		Name:    name,
		Website: raw.Website,
		Cats:    raw.Cats,
		Implies: processImpliesList(raw.Implies),
	}

	for _, id := range raw.Cats {
		if catName, ok := categories[id]; ok {
			tech.CatNames = append(tech.CatNames, catName)
		}
	}

	var err error
	if tech.HTML, err = c.compileList(name, "html", raw.HTML); err != nil {
		return nil, err
	}
	if tech.Scripts, err = c.compileList(name, "scripts", raw.Scripts); err != nil {
		return nil, err
	}
	if tech.URL, err = c.compileList(name, "url", raw.URL); err != nil {
		return nil, err
	}
	if tech.Headers, err = c.compileNamed(name, "headers", raw.Headers); err != nil {
		return nil, err
	}
	if tech.Cookies, err = c.compileNamed(name, "cookies", raw.Cookies); err != nil {
		return nil, err
	}

	for _, metaName := range sortedKeys(raw.Meta) {
		pattern, err := c.ParseMetaPattern(metaName, raw.Meta[metaName])
		if err != nil {
			return nil, &SignatureCompileError{Technology: name, Field: "meta." + metaName, Pattern: strings.Join(raw.Meta[metaName], "|"), Cause: err}
		}
		tech.Meta = append(tech.Meta, pattern)
	}

	return tech, nil
}

func (c *Compiler) compileList(name, field string, list models.StringArray) ([]*models.CompiledPattern, error) {
	patterns := make([]*models.CompiledPattern, 0, len(list))
	for _, raw := range list {
		pattern, err := c.ParsePattern(raw)
		if err != nil {
			return nil, &SignatureCompileError{Technology: name, Field: field, Pattern: raw, Cause: err}
		}
		if pattern != nil {
			patterns = append(patterns, pattern)
		}
	}
	return patterns, nil
}

func (c *Compiler) compileNamed(name, field string, rules map[string]string) ([]*models.CompiledPattern, error) {
	patterns := make([]*models.CompiledPattern, 0, len(rules))
	for _, key := range sortedKeys(rules) {
		pattern, err := c.ParseNamedPattern(key, rules[key])
		if err != nil {
			return nil, &SignatureCompileError{Technology: name, Field: field + "." + key, Pattern: rules[key], Cause: err}
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

// processImpliesList drops directives such as "\;confidence:50" from implied names
func processImpliesList(implies models.StringArray) []string {
	var impliedTechs []string
	for _, implied := range implies {
		implied, _, _ = strings.Cut(implied, directiveSeparator)
		implied = strings.TrimSpace(implied)
		if implied != "" {
			impliedTechs = append(impliedTechs, implied)
		}
	}
	return impliedTechs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
