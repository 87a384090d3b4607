package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/i2y/orchestrate/internal/domain"
)

func TestSchema_TypeListUsesFirstElement(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var fromJSON domain.Schema
	require.NoError(json.Unmarshal([]byte(`{"type":["integer","null"]}`), &fromJSON))
	assert.Equal(domain.SchemaType("integer"), fromJSON.Type)

	var fromYAML domain.Schema
	require.NoError(yaml.Unmarshal([]byte("type: [string, null]\n"), &fromYAML))
	assert.Equal(domain.SchemaType("string"), fromYAML.Type)

	var empty domain.Schema
	require.NoError(json.Unmarshal([]byte(`{"type":[]}`), &empty))
	assert.Equal(domain.SchemaType(""), empty.Type)
}

func TestProperties_KeepInsertionOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	doc := `{"type":"object","properties":{"zeta":{"type":"string"},"alpha":{"type":"integer"},"mid":{"type":"boolean"}}}`
	var s domain.Schema
	require.NoError(json.Unmarshal([]byte(doc), &s))
	assert.Equal([]string{"zeta", "alpha", "mid"}, s.Properties.Keys())

	out, err := json.Marshal(&s)
	require.NoError(err)
	assert.JSONEq(doc, string(out))
	assert.Less(indexOf(string(out), "zeta"), indexOf(string(out), "alpha"))

	y, err := yaml.Marshal(&s)
	require.NoError(err)
	var back domain.Schema
	require.NoError(yaml.Unmarshal(y, &back))
	assert.Equal([]string{"zeta", "alpha", "mid"}, back.Properties.Keys())
}

func TestProperties_SetDelete(t *testing.T) {
	assert := assert.New(t)

	p := domain.NewProperties()
	p.Set("a", &domain.Schema{Type: domain.TypeString})
	p.Set("b", &domain.Schema{Type: domain.TypeString})
	p.Set("a", &domain.Schema{Type: domain.TypeInteger})
	assert.Equal([]string{"a", "b"}, p.Keys())
	got, ok := p.Get("a")
	assert.True(ok)
	assert.Equal(domain.SchemaType(domain.TypeInteger), got.Type)

	p.Delete("a")
	assert.Equal([]string{"b"}, p.Keys())
	assert.Equal(1, p.Len())
}

func TestSchema_NormalizeOptional(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantRequired []string
		check        func(t *testing.T, s *domain.Schema)
	}{
		{
			name:         "anyOf with null is flattened and demoted",
			in:           `{"type":"object","properties":{"x":{"anyOf":[{"type":"string"},{"type":"null"}],"title":"X"}},"required":["x"]}`,
			wantRequired: []string{},
			check: func(t *testing.T, s *domain.Schema) {
				x, _ := s.Properties.Get("x")
				assert.Equal(t, domain.SchemaType("string"), x.Type)
				assert.Equal(t, "X", x.Title)
				assert.Empty(t, x.AnyOf)
			},
		},
		{
			name:         "bare null type is demoted",
			in:           `{"type":"object","properties":{"n":{"type":"null"}},"required":["n"]}`,
			wantRequired: []string{},
			check: func(t *testing.T, s *domain.Schema) {
				n, _ := s.Properties.Get("n")
				assert.Equal(t, domain.SchemaType(""), n.Type)
			},
		},
		{
			name:         "two remaining branches keep anyOf",
			in:           `{"type":"object","properties":{"v":{"anyOf":[{"type":"string"},{"type":"integer"},{"type":"null"}]}},"required":["v"]}`,
			wantRequired: []string{},
			check: func(t *testing.T, s *domain.Schema) {
				v, _ := s.Properties.Get("v")
				assert.Len(t, v.AnyOf, 2)
			},
		},
		{
			name:         "optional but not required is untouched",
			in:           `{"type":"object","properties":{"x":{"anyOf":[{"type":"string"},{"type":"null"}]}},"required":[]}`,
			wantRequired: []string{},
			check: func(t *testing.T, s *domain.Schema) {
				x, _ := s.Properties.Get("x")
				assert.Len(t, x.AnyOf, 2)
			},
		},
		{
			name:         "nested objects are corrected",
			in:           `{"type":"object","properties":{"outer":{"type":"object","properties":{"inner":{"anyOf":[{"type":"integer"},{"type":"null"}]}},"required":["inner"]}},"required":["outer"]}`,
			wantRequired: []string{"outer"},
			check: func(t *testing.T, s *domain.Schema) {
				outer, _ := s.Properties.Get("outer")
				assert.Empty(t, outer.Required)
				inner, _ := outer.Properties.Get("inner")
				assert.Equal(t, domain.SchemaType("integer"), inner.Type)
			},
		},
		{
			name:         "array items are not walked",
			in:           `{"type":"object","properties":{"list":{"type":"array","items":{"type":"object","properties":{"i":{"anyOf":[{"type":"integer"},{"type":"null"}]}},"required":["i"]}}},"required":["list"]}`,
			wantRequired: []string{"list"},
			check: func(t *testing.T, s *domain.Schema) {
				list, _ := s.Properties.Get("list")
				assert.Equal(t, []string{"i"}, list.Items.Required)
				i, _ := list.Items.Properties.Get("i")
				assert.Len(t, i.AnyOf, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s domain.Schema
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			s.NormalizeOptional()
			assert.ElementsMatch(t, tt.wantRequired, s.Required)
			tt.check(t, &s)
		})
	}
}

func TestSchema_UnwrapOptional(t *testing.T) {
	assert := assert.New(t)

	opt := &domain.Schema{AnyOf: []*domain.Schema{{Type: domain.TypeString}, {Type: domain.TypeNull}}}
	got, ok := opt.UnwrapOptional()
	assert.True(ok)
	assert.Equal(domain.SchemaType("string"), got.Type)

	plain := &domain.Schema{Type: domain.TypeInteger}
	got, ok = plain.UnwrapOptional()
	assert.False(ok)
	assert.Same(plain, got)
}

func TestSchema_CloneIsDeep(t *testing.T) {
	assert := assert.New(t)

	s := domain.ObjectSchema()
	s.Properties.Set("a", &domain.Schema{Type: domain.TypeString})
	s.Required = append(s.Required, "a")

	c := s.Clone()
	c.Properties.Set("b", &domain.Schema{Type: domain.TypeString})
	c.Required = append(c.Required, "b")
	a, _ := c.Properties.Get("a")
	a.Type = domain.TypeInteger

	assert.Equal([]string{"a"}, s.Properties.Keys())
	assert.Equal([]string{"a"}, s.Required)
	orig, _ := s.Properties.Get("a")
	assert.Equal(domain.SchemaType("string"), orig.Type)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
