package pyreflect

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/i2y/orchestrate/internal/domain"
)

// typeExpr is a parsed annotation: a base name and its subscript arguments.
// Unions are represented with the base "Union".
type typeExpr struct {
	name string
	args []*typeExpr
	// literal holds the value of a constant inside Literal[...].
	literal    any
	hasLiteral bool
}

// parseType reads an annotation node. Subscripted, PEP 604 and dotted forms
// are all normalized to typeExpr.
func parseType(n *sitter.Node, src []byte) *typeExpr {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "type", "parenthesized_expression":
		children := namedChildren(n)
		if len(children) == 1 {
			return parseType(children[0], src)
		}
		return &typeExpr{name: "Any"}

	case "none":
		return &typeExpr{name: "None"}

	case "identifier", "attribute", "member_type":
		return &typeExpr{name: lastSegment(text(n, src))}

	case "string", "concatenated_string":
		v, _ := evalLiteral(n, src)
		s, _ := v.(string)
		return &typeExpr{name: lastSegment(strings.TrimSpace(s)), literal: v, hasLiteral: true}

	case "integer", "float", "true", "false", "unary_operator":
		v, ok := evalLiteral(n, src)
		return &typeExpr{name: "", literal: v, hasLiteral: ok}

	case "generic_type":
		children := namedChildren(n)
		if len(children) == 0 {
			return &typeExpr{name: "Any"}
		}
		t := &typeExpr{name: lastSegment(text(children[0], src))}
		for _, c := range children[1:] {
			if c.Kind() == "type_parameter" {
				for _, arg := range namedChildren(c) {
					t.args = append(t.args, parseType(arg, src))
				}
			}
		}
		return t

	case "subscript":
		t := &typeExpr{name: lastSegment(text(n.ChildByFieldName("value"), src))}
		children := namedChildren(n)
		for _, arg := range children[1:] {
			if arg.Kind() == "tuple" {
				for _, a := range namedChildren(arg) {
					t.args = append(t.args, parseType(a, src))
				}
				continue
			}
			t.args = append(t.args, parseType(arg, src))
		}
		return t

	case "union_type", "binary_operator":
		u := &typeExpr{name: "Union"}
		for _, side := range namedChildren(n) {
			branch := parseType(side, src)
			if branch.name == "Union" {
				u.args = append(u.args, branch.args...)
				continue
			}
			u.args = append(u.args, branch)
		}
		return u
	}
	return &typeExpr{name: "Any"}
}

// isOptional reports whether the annotation admits None.
func (t *typeExpr) isOptional() bool {
	if t == nil {
		return false
	}
	switch t.name {
	case "Optional":
		return true
	case "Union":
		for _, a := range t.args {
			if a != nil && (a.name == "None" || a.name == "NoneType") {
				return true
			}
		}
	}
	return false
}

// schemaBuilder converts annotations to schema nodes, expanding pydantic
// models declared in the same file.
type schemaBuilder struct {
	src      []byte
	models   map[string]*sitter.Node
	building map[string]bool
}

func newSchemaBuilder(src []byte, models map[string]*sitter.Node) *schemaBuilder {
	return &schemaBuilder{src: src, models: models, building: map[string]bool{}}
}

func (b *schemaBuilder) schema(t *typeExpr) *domain.Schema {
	if t == nil {
		return &domain.Schema{}
	}
	arg := func(i int) *typeExpr {
		if i < len(t.args) {
			return t.args[i]
		}
		return nil
	}

	switch t.name {
	case "str":
		return &domain.Schema{Type: domain.TypeString}
	case "int":
		return &domain.Schema{Type: domain.TypeInteger}
	case "float":
		return &domain.Schema{Type: domain.TypeNumber}
	case "bool":
		return &domain.Schema{Type: domain.TypeBoolean}
	case "bytes":
		return &domain.Schema{Type: domain.TypeString, Format: "binary"}
	case "None", "NoneType":
		return &domain.Schema{Type: domain.TypeNull}
	case "datetime":
		return &domain.Schema{Type: domain.TypeString, Format: "date-time"}
	case "date":
		return &domain.Schema{Type: domain.TypeString, Format: "date"}
	case "time":
		return &domain.Schema{Type: domain.TypeString, Format: "time"}
	case "UUID":
		return &domain.Schema{Type: domain.TypeString, Format: "uuid"}
	case "Decimal":
		return &domain.Schema{AnyOf: []*domain.Schema{{Type: domain.TypeNumber}, {Type: domain.TypeString}}}

	case "list", "List", "Sequence", "MutableSequence", "Iterable", "Iterator", "Collection", "tuple", "Tuple":
		s := &domain.Schema{Type: domain.TypeArray, Items: &domain.Schema{}}
		if a := arg(0); a != nil {
			s.Items = b.schema(a)
		}
		return s

	case "set", "Set", "frozenset", "FrozenSet", "AbstractSet", "MutableSet":
		unique := true
		s := &domain.Schema{Type: domain.TypeArray, UniqueItems: &unique, Items: &domain.Schema{}}
		if a := arg(0); a != nil {
			s.Items = b.schema(a)
		}
		return s

	case "dict", "Dict", "Mapping", "MutableMapping":
		s := &domain.Schema{Type: domain.TypeObject}
		if a := arg(1); a != nil {
			s.AdditionalProperties = b.schema(a)
		}
		return s

	case "Optional":
		return &domain.Schema{AnyOf: []*domain.Schema{b.schema(arg(0)), {Type: domain.TypeNull}}}

	case "Union":
		s := &domain.Schema{}
		for _, a := range t.args {
			s.AnyOf = append(s.AnyOf, b.schema(a))
		}
		return s

	case "Literal":
		return literalSchema(t.args)

	case "Annotated":
		return b.schema(arg(0))
	}

	if node, ok := b.models[t.name]; ok {
		return b.model(t.name, node)
	}
	return &domain.Schema{}
}

func literalSchema(args []*typeExpr) *domain.Schema {
	s := &domain.Schema{}
	var kind domain.SchemaType
	uniform := true
	for i, a := range args {
		if a == nil || !a.hasLiteral {
			continue
		}
		s.Enum = append(s.Enum, a.literal)
		var k domain.SchemaType
		switch a.literal.(type) {
		case string:
			k = domain.TypeString
		case int64:
			k = domain.TypeInteger
		case float64:
			k = domain.TypeNumber
		case bool:
			k = domain.TypeBoolean
		case nil:
			k = domain.TypeNull
		}
		if i == 0 {
			kind = k
		} else if k != kind {
			uniform = false
		}
	}
	if uniform {
		s.Type = kind
	}
	return s
}

// model expands a pydantic BaseModel subclass: annotated class attributes are
// fields, class-level defaults and Field(...) calls supply defaults and descriptions.
func (b *schemaBuilder) model(name string, class *sitter.Node) *domain.Schema {
	if b.building[name] {
		return &domain.Schema{Type: domain.TypeObject, Title: name}
	}
	b.building[name] = true
	defer delete(b.building, name)

	s := &domain.Schema{Type: domain.TypeObject, Title: name, Properties: domain.NewProperties(), Required: []string{}}

	for _, base := range namedChildren(class.ChildByFieldName("superclasses")) {
		parent := lastSegment(text(base, b.src))
		if node, ok := b.models[parent]; ok && parent != name {
			inherited := b.model(parent, node)
			for _, k := range inherited.Properties.Keys() {
				p, _ := inherited.Properties.Get(k)
				s.Properties.Set(k, p)
			}
			for _, r := range inherited.Required {
				s.AddRequired(r)
			}
		}
	}

	body := class.ChildByFieldName("body")
	if doc := docstringOf(body, b.src); doc != "" {
		s.Description = strings.Join(cleandoc(doc), "\n")
	}

	for _, stmt := range namedChildren(body) {
		if stmt.Kind() != "expression_statement" {
			continue
		}
		children := namedChildren(stmt)
		if len(children) != 1 || children[0].Kind() != "assignment" {
			continue
		}
		assign := children[0]
		left := assign.ChildByFieldName("left")
		annotation := assign.ChildByFieldName("type")
		if left == nil || left.Kind() != "identifier" || annotation == nil {
			continue
		}
		field := text(left, b.src)
		if strings.HasPrefix(field, "_") || field == "model_config" {
			continue
		}
		t := parseType(annotation, b.src)
		if t.name == "ClassVar" {
			continue
		}

		prop := b.schema(t)
		prop.Title = fieldTitle(field)
		required := true

		if right := assign.ChildByFieldName("right"); right != nil {
			if right.Kind() == "call" && lastSegment(text(right.ChildByFieldName("function"), b.src)) == "Field" {
				required = applyField(prop, right, b.src)
			} else {
				required = false
				if v, ok := evalLiteral(right, b.src); ok {
					prop.Default = v
				}
			}
		}

		s.Properties.Set(field, prop)
		if required {
			s.AddRequired(field)
		} else {
			s.RemoveRequired(field)
		}
	}
	return s
}

// applyField copies default, title and description from a pydantic Field(...)
// call and reports whether the field is still required.
func applyField(prop *domain.Schema, call *sitter.Node, src []byte) bool {
	required := true
	kwargs := keywordArguments(call, src)

	defaultNode := kwargs["default"]
	if pos := positionalArguments(call); defaultNode == nil && len(pos) > 0 {
		defaultNode = pos[0]
	}
	if defaultNode != nil && text(defaultNode, src) != "..." && defaultNode.Kind() != "ellipsis" {
		required = false
		if v, ok := evalLiteral(defaultNode, src); ok {
			prop.Default = v
		}
	}
	if _, ok := kwargs["default_factory"]; ok {
		required = false
	}
	if v, ok := evalLiteral(kwargs["description"], src); ok {
		if s, isString := v.(string); isString {
			prop.Description = s
		}
	}
	if v, ok := evalLiteral(kwargs["title"], src); ok {
		if s, isString := v.(string); isString {
			prop.Title = s
		}
	}
	return required
}

// fieldTitle renders a field name the way pydantic titles it: "first_name" -> "First Name".
func fieldTitle(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// docstringOf returns the raw docstring of a block, if its first statement is a string.
func docstringOf(block *sitter.Node, src []byte) string {
	stmts := namedChildren(block)
	if len(stmts) == 0 || stmts[0].Kind() != "expression_statement" {
		return ""
	}
	exprs := namedChildren(stmts[0])
	if len(exprs) != 1 {
		return ""
	}
	v, ok := evalLiteral(exprs[0], src)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
