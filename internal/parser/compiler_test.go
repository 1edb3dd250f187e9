package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

const testDefinition = `{
  "categories": {
    "1": {"name": "CMS", "priority": 1},
    "27": {"name": "Programming languages"}
  },
  "technologies": {
    "PHP": {
      "cats": [27],
      "headers": {"X-Powered-By": "php/?([\\d.]+)?\\;version:\\1"},
      "url": "\\.php(?:$|\\?)",
      "website": "https://php.net"
    },
    "WordPress": {
      "cats": [1],
      "html": ["<link rel=[\"']stylesheet[\"'] [^>]+wp-(?:content|includes)"],
      "meta": {"generator": ["WordPress ?([\\d.]+)?\\;version:\\1"]},
      "implies": ["PHP\\;confidence:50", "MySQL"]
    }
  }
}`

func compileTestDefinition(t *testing.T) *models.SignatureDatabase {
	t.Helper()
	def, err := LoadDefinition(strings.NewReader(testDefinition))
	require.NoError(t, err)
	db, err := CompileDefinition(def)
	require.NoError(t, err)
	return db
}

func TestCompileDefinition(t *testing.T) {
	db := compileTestDefinition(t)

	assert.Equal(t, []string{"PHP", "WordPress"}, db.Names())
	assert.Equal(t, "CMS", db.CategoryByID(1))
	assert.Equal(t, "", db.CategoryByID(99))

	php, ok := db.Lookup("PHP")
	require.True(t, ok)
	assert.Equal(t, []string{"Programming languages"}, php.CatNames)
	assert.Equal(t, "https://php.net", php.Website)
	require.Len(t, php.Headers, 1)
	assert.Equal(t, "x-powered-by", php.Headers[0].FieldKey)
	assert.Equal(t, `\1`, php.Headers[0].Version)
	require.Len(t, php.URL, 1)

	wp, ok := db.Lookup("WordPress")
	require.True(t, ok)
	assert.Equal(t, []string{"PHP", "MySQL"}, wp.Implies)
	require.Len(t, wp.Meta, 1)
	assert.Equal(t, "generator", wp.Meta[0].FieldKey)
}

func TestCompileDefinitionRejectsBadPattern(t *testing.T) {
	def := &models.Definition{
		Technologies: map[string]*models.RawTechnology{
			"Broken": {HTML: models.StringArray{"(unclosed"}},
		},
	}

	_, err := CompileDefinition(def)
	require.Error(t, err)

	var compileErr *SignatureCompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "Broken", compileErr.Technology)
	assert.Equal(t, "html", compileErr.Field)
	assert.Equal(t, "(unclosed", compileErr.Pattern)
}

func TestLoadDefinitionRequiresTechnologies(t *testing.T) {
	_, err := LoadDefinition(strings.NewReader(`{"categories": {}}`))

	var compileErr *SignatureCompileError
	require.ErrorAs(t, err, &compileErr)
}

func TestLoadDefinitionInvalidJSON(t *testing.T) {
	_, err := LoadDefinition(strings.NewReader(`{`))
	require.Error(t, err)
}

func TestStringArrayAcceptsStringOrList(t *testing.T) {
	def, err := LoadDefinition(strings.NewReader(`{"technologies": {
		"A": {"html": "single", "implies": ["B", "C"]},
		"B": {"html": null}
	}}`))
	require.NoError(t, err)

	assert.Equal(t, models.StringArray{"single"}, def.Technologies["A"].HTML)
	assert.Equal(t, models.StringArray{"B", "C"}, def.Technologies["A"].Implies)
	assert.Nil(t, def.Technologies["B"].HTML)
}

func TestParsePattern(t *testing.T) {
	c := NewCompiler(0)

	p, err := c.ParsePattern(`jquery[.-]([\d.]+)\.js\;version:\1\;confidence:50`)
	require.NoError(t, err)
	assert.Equal(t, `jquery[.-]([\d.]+)\.js`, p.Source)
	assert.Equal(t, `\1`, p.Version)

	found, err := p.FindAll("/js/JQUERY-3.6.0.js")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, models.Captures{"3.6.0"}, found[0])

	empty, err := c.ParsePattern("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestParsePatternSupportsLookahead(t *testing.T) {
	p, err := NewCompiler(0).ParsePattern(`foo(?!bar)`)
	require.NoError(t, err)

	found, err := p.FindAll("foobar foobaz")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestParseNamedPatternPresenceOnly(t *testing.T) {
	p, err := NewCompiler(0).ParseNamedPattern("X-Drupal-Cache", "")
	require.NoError(t, err)
	assert.True(t, p.PresenceOnly)
	assert.Equal(t, "x-drupal-cache", p.FieldKey)
}

func TestParseMetaPatternJoinsAlternatives(t *testing.T) {
	p, err := NewCompiler(0).ParseMetaPattern("generator", []string{`Foo ([\d.]+)\;version:\1`, "Bar"})
	require.NoError(t, err)
	assert.Equal(t, `Foo ([\d.]+)|Bar`, p.Source)
	assert.Equal(t, `\1`, p.Version)

	found, err := p.FindAll("bar")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestNormalizePattern(t *testing.T) {
	assert.Equal(t, "abc", normalizePattern("/abc/"))
	assert.Equal(t, "/", normalizePattern("/"))
	assert.Equal(t, "abc", normalizePattern("abc"))
}
