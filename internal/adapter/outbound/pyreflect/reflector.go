// Package pyreflect extracts tool specs from Python source files. Functions
// decorated with @tool are read at the source level with tree-sitter, so no
// Python interpreter is needed.
package pyreflect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/i2y/orchestrate/internal/domain"
)

// toolDecorator is the decorator name that marks a function as a tool.
const toolDecorator = "tool"

// PythonTool is a tool found in a Python file.
type PythonTool = domain.PythonTool

// Reflector turns decorated Python functions into tool specs.
type Reflector struct {
	workDir string
	logger  *slog.Logger
}

// NewReflector creates a reflector. Module paths in bindings are computed
// relative to workDir.
func NewReflector(workDir string, logger *slog.Logger) *Reflector {
	return &Reflector{
		workDir: workDir,
		logger:  logger.With("component", "python_reflector"),
	}
}

// ReflectFile reads and reflects a Python file.
func (r *Reflector) ReflectFile(ctx context.Context, path string) ([]PythonTool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read python file %s: %w", path, err)
	}
	return r.ReflectSource(path, src)
}

// ReflectSource reflects the given source as if it were stored at path.
func (r *Reflector) ReflectSource(path string, src []byte) ([]PythonTool, error) {
	log := r.logger.With(slog.String("file", path))

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitter.NewLanguage(tree_sitter_python.Language())); err != nil {
		return nil, fmt.Errorf("failed to load python grammar: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse python file %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		log.Warn("Python file contains syntax errors, reflecting what could be parsed")
	}

	module, err := r.modulePath(path)
	if err != nil {
		return nil, err
	}

	models := map[string]*sitter.Node{}
	var decorated []*sitter.Node
	for _, stmt := range namedChildren(root) {
		switch stmt.Kind() {
		case "class_definition":
			collectModel(stmt, src, models)
			warnToolMethods(log, stmt, src)
		case "decorated_definition":
			def := stmt.ChildByFieldName("definition")
			if def == nil {
				continue
			}
			if def.Kind() == "class_definition" {
				collectModel(def, src, models)
				warnToolMethods(log, def, src)
				continue
			}
			decorated = append(decorated, stmt)
		}
	}
	builder := newSchemaBuilder(src, models)

	var tools []PythonTool
	for _, stmt := range decorated {
		call, ok := findToolDecorator(stmt, src)
		if !ok {
			continue
		}
		fn := stmt.ChildByFieldName("definition")
		t, err := r.reflectFunction(fn, call, module, builder, src)
		if err != nil {
			log.Error("Failed to reflect tool", slog.String("function", text(fn.ChildByFieldName("name"), src)), slog.Any("error", err))
			return nil, err
		}
		log.Debug("Reflected tool", slog.String("tool", t.Spec.Name), slog.Int("line", t.Line))
		tools = append(tools, t)
	}

	log.Info("Reflected python tools", slog.Int("count", len(tools)))
	return tools, nil
}

// modulePath converts a file path to a dotted module path relative to the working directory.
func (r *Reflector) modulePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	rel := filepath.Base(abs)
	if r.workDir != "" {
		wd, err := filepath.Abs(r.workDir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		if p, err := filepath.Rel(wd, abs); err == nil && !strings.HasPrefix(p, "..") {
			rel = p
		}
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	return strings.ReplaceAll(rel, "/", "."), nil
}

// collectModel records classes deriving from BaseModel, directly or through
// another model of the same file.
func collectModel(class *sitter.Node, src []byte, models map[string]*sitter.Node) {
	name := text(class.ChildByFieldName("name"), src)
	for _, base := range namedChildren(class.ChildByFieldName("superclasses")) {
		b := lastSegment(text(base, src))
		if b == "BaseModel" || models[b] != nil {
			models[name] = class
			return
		}
	}
}

// warnToolMethods logs the @tool methods of a class. Only module-level
// functions can be bound to a tool, so methods are skipped.
func warnToolMethods(log *slog.Logger, class *sitter.Node, src []byte) {
	for _, member := range namedChildren(class.ChildByFieldName("body")) {
		if member.Kind() != "decorated_definition" {
			continue
		}
		def := member.ChildByFieldName("definition")
		if def == nil || def.Kind() != "function_definition" {
			continue
		}
		if _, ok := findToolDecorator(member, src); !ok {
			continue
		}
		log.Warn("Skipping @tool method, only module-level functions are tools",
			slog.String("class", text(class.ChildByFieldName("name"), src)),
			slog.String("method", text(def.ChildByFieldName("name"), src)),
			slog.Int("line", int(def.StartPosition().Row)+1),
		)
	}
}

// findToolDecorator returns the @tool decorator of a decorated definition. The
// returned node is the call when the decorator takes arguments, nil otherwise.
func findToolDecorator(decorated *sitter.Node, src []byte) (*sitter.Node, bool) {
	for _, child := range namedChildren(decorated) {
		if child.Kind() != "decorator" {
			continue
		}
		exprs := namedChildren(child)
		if len(exprs) == 0 {
			continue
		}
		expr := exprs[0]
		switch expr.Kind() {
		case "identifier", "attribute":
			if lastSegment(text(expr, src)) == toolDecorator {
				return nil, true
			}
		case "call":
			if lastSegment(text(expr.ChildByFieldName("function"), src)) == toolDecorator {
				return expr, true
			}
		}
	}
	return nil, false
}

func (r *Reflector) reflectFunction(fn, decorator *sitter.Node, module string, builder *schemaBuilder, src []byte) (PythonTool, error) {
	fnName := text(fn.ChildByFieldName("name"), src)
	opts, err := parseDecoratorOptions(decorator, src)
	if err != nil {
		return PythonTool{}, fmt.Errorf("tool %s: %w", fnName, err)
	}

	var doc Docstring
	if raw := docstringOf(fn.ChildByFieldName("body"), src); raw != "" {
		doc = ParseDocstring(raw)
	}

	name := opts.name
	if name == "" {
		name = fnName
	}
	description := opts.description
	if description == "" {
		description = doc.Description
	}

	input := opts.inputSchema
	if input == nil {
		input = r.inputSchema(fn, builder, doc, src)
	}

	output := opts.outputSchema
	if output == nil {
		output = &domain.Schema{}
		if ret := fn.ChildByFieldName("return_type"); ret != nil {
			output = builder.schema(parseType(ret, src))
		}
		if doc.Returns != "" {
			output.Description = doc.Returns
		}
	}
	if output.Properties != nil {
		output.NormalizeOptional()
	}

	binding := domain.Binding{Python: &domain.PythonBinding{Function: module + ":" + fnName}}
	spec, err := domain.NewToolSpec(name, description, opts.permission, input, output, binding)
	if err != nil {
		return PythonTool{}, err
	}

	return PythonTool{
		Spec:                spec,
		ExpectedCredentials: opts.credentials,
		FunctionName:        fnName,
		Line:                int(fn.StartPosition().Row) + 1,
	}, nil
}

// inputSchema builds one property per parameter. Optional annotations are
// unwrapped and never required; other parameters are required when they have no default.
func (r *Reflector) inputSchema(fn *sitter.Node, builder *schemaBuilder, doc Docstring, src []byte) *domain.Schema {
	input := domain.ObjectSchema()

	for _, param := range namedChildren(fn.ChildByFieldName("parameters")) {
		var (
			nameNode   *sitter.Node
			annotation *sitter.Node
			hasDefault bool
		)
		switch param.Kind() {
		case "identifier":
			nameNode = param
		case "typed_parameter":
			children := namedChildren(param)
			if len(children) == 0 || children[0].Kind() != "identifier" {
				continue
			}
			nameNode = children[0]
			annotation = param.ChildByFieldName("type")
		case "default_parameter":
			nameNode = param.ChildByFieldName("name")
			hasDefault = true
		case "typed_default_parameter":
			nameNode = param.ChildByFieldName("name")
			annotation = param.ChildByFieldName("type")
			hasDefault = true
		default:
			// *args, **kwargs and the / and * separators carry no tool input.
			continue
		}

		name := text(nameNode, src)
		if name == "self" || name == "cls" {
			continue
		}

		prop := &domain.Schema{}
		optional := false
		if annotation != nil {
			t := parseType(annotation, src)
			optional = t.isOptional()
			prop = builder.schema(t)
			if optional {
				prop, _ = prop.UnwrapOptional()
			}
		}
		if desc, ok := doc.Params[name]; ok && desc != "" {
			prop.Description = desc
		}

		input.Properties.Set(name, prop)
		if !hasDefault && !optional {
			input.AddRequired(name)
		}
	}

	input.NormalizeOptional()
	return input
}

type decoratorOptions struct {
	name         string
	description  string
	permission   domain.Permission
	credentials  []domain.ExpectedCredential
	inputSchema  *domain.Schema
	outputSchema *domain.Schema
}

func parseDecoratorOptions(call *sitter.Node, src []byte) (decoratorOptions, error) {
	var opts decoratorOptions
	if call == nil {
		return opts, nil
	}
	kwargs := keywordArguments(call, src)
	if pos := positionalArguments(call); len(pos) > 0 {
		if _, ok := kwargs["name"]; !ok {
			kwargs["name"] = pos[0]
		}
	}

	for key, value := range kwargs {
		switch key {
		case "name", "description":
			v, ok := evalLiteral(value, src)
			s, isString := v.(string)
			if !ok || !isString {
				return opts, fmt.Errorf("decorator argument %s must be a string literal", key)
			}
			if key == "name" {
				opts.name = s
			} else {
				opts.description = s
			}

		case "permission":
			raw := text(value, src)
			if v, ok := evalLiteral(value, src); ok {
				raw, _ = v.(string)
			}
			p, err := domain.ParsePermission(lastSegment(raw))
			if err != nil {
				return opts, err
			}
			opts.permission = p

		case "expected_credentials":
			creds, err := parseCredentials(value, src)
			if err != nil {
				return opts, err
			}
			opts.credentials = creds

		case "input_schema", "output_schema":
			s, err := literalSchemaArg(value, src)
			if err != nil {
				return opts, fmt.Errorf("decorator argument %s: %w", key, err)
			}
			if key == "input_schema" {
				opts.inputSchema = s
			} else {
				opts.outputSchema = s
			}
		}
	}
	return opts, nil
}

// parseCredentials reads a list of app ids, or of {"app_id": ..., "type": ...} entries.
func parseCredentials(n *sitter.Node, src []byte) ([]domain.ExpectedCredential, error) {
	if n == nil || (n.Kind() != "list" && n.Kind() != "tuple") {
		return nil, fmt.Errorf("expected_credentials must be a list")
	}
	var out []domain.ExpectedCredential
	for _, item := range namedChildren(n) {
		switch item.Kind() {
		case "string":
			out = append(out, domain.ExpectedCredential{AppID: unquote(text(item, src))})
		case "dictionary", "call":
			fields := map[string]*sitter.Node{}
			if item.Kind() == "call" {
				fields = keywordArguments(item, src)
			} else {
				for _, pair := range namedChildren(item) {
					if pair.Kind() == "pair" {
						k, _ := evalLiteral(pair.ChildByFieldName("key"), src)
						if s, ok := k.(string); ok {
							fields[s] = pair.ChildByFieldName("value")
						}
					}
				}
			}
			appID, _ := evalLiteral(fields["app_id"], src)
			id, ok := appID.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("expected credential is missing app_id")
			}
			cred := domain.ExpectedCredential{AppID: id}
			if typeNode := fields["type"]; typeNode != nil {
				raw := text(typeNode, src)
				if v, ok := evalLiteral(typeNode, src); ok {
					raw, _ = v.(string)
				}
				ct, err := domain.ParseConnectionType(lastSegment(raw))
				if err != nil {
					return nil, err
				}
				cred.Type = &ct
			}
			out = append(out, cred)
		default:
			return nil, fmt.Errorf("unsupported expected_credentials entry %q", text(item, src))
		}
	}
	return out, nil
}

// literalSchemaArg decodes a dict literal, or a call with keyword arguments
// such as ToolRequestBody(type="object", ...), into a schema.
func literalSchemaArg(n *sitter.Node, src []byte) (*domain.Schema, error) {
	var value any
	switch {
	case n == nil:
		return nil, fmt.Errorf("missing value")
	case n.Kind() == "call":
		m := map[string]any{}
		for k, v := range keywordArguments(n, src) {
			lit, ok := evalLiteral(v, src)
			if !ok {
				return nil, fmt.Errorf("argument %s is not a literal", k)
			}
			m[k] = lit
		}
		value = m
	default:
		lit, ok := evalLiteral(n, src)
		if !ok {
			return nil, fmt.Errorf("schema must be a literal dict")
		}
		value = lit
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	var s domain.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &s, nil
}
