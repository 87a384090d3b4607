package pyreflect

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil && c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// unquote returns the value of a Python string literal. Prefixes such as r, u
// and b are dropped; escape sequences are only interpreted for non-raw strings.
func unquote(lit string) string {
	prefixEnd := strings.IndexAny(lit, `"'`)
	if prefixEnd < 0 {
		return lit
	}
	prefix := strings.ToLower(lit[:prefixEnd])
	body := lit[prefixEnd:]

	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			body = body[len(q) : len(body)-len(q)]
			break
		}
	}
	if strings.Contains(prefix, "r") {
		return body
	}
	return unescape(body)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		case '\n':
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// evalLiteral evaluates a constant Python expression: numbers, strings,
// booleans, None, and lists, tuples and dicts made of them. Anything else
// reports ok == false.
func evalLiteral(n *sitter.Node, src []byte) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind() {
	case "string":
		return unquote(text(n, src)), true
	case "concatenated_string":
		var b strings.Builder
		for _, c := range namedChildren(n) {
			b.WriteString(unquote(text(c, src)))
		}
		return b.String(), true
	case "integer":
		v, err := strconv.ParseInt(strings.ReplaceAll(text(n, src), "_", ""), 0, 64)
		return v, err == nil
	case "float":
		v, err := strconv.ParseFloat(strings.ReplaceAll(text(n, src), "_", ""), 64)
		return v, err == nil
	case "true":
		return true, true
	case "false":
		return false, true
	case "none":
		return nil, true
	case "unary_operator":
		arg, ok := evalLiteral(n.ChildByFieldName("argument"), src)
		if !ok || !strings.HasPrefix(text(n, src), "-") {
			return arg, ok
		}
		switch v := arg.(type) {
		case int64:
			return -v, true
		case float64:
			return -v, true
		}
		return nil, false
	case "parenthesized_expression":
		children := namedChildren(n)
		if len(children) == 1 {
			return evalLiteral(children[0], src)
		}
	case "list", "tuple", "set":
		out := []any{}
		for _, c := range namedChildren(n) {
			v, ok := evalLiteral(c, src)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	case "dictionary":
		out := map[string]any{}
		for _, pair := range namedChildren(n) {
			if pair.Kind() != "pair" {
				return nil, false
			}
			k, ok := evalLiteral(pair.ChildByFieldName("key"), src)
			if !ok {
				return nil, false
			}
			key, isString := k.(string)
			if !isString {
				return nil, false
			}
			v, ok := evalLiteral(pair.ChildByFieldName("value"), src)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	}
	return nil, false
}

// keywordArguments maps keyword names of a call's argument list to their value nodes.
func keywordArguments(call *sitter.Node, src []byte) map[string]*sitter.Node {
	out := map[string]*sitter.Node{}
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		if arg.Kind() != "keyword_argument" {
			continue
		}
		out[text(arg.ChildByFieldName("name"), src)] = arg.ChildByFieldName("value")
	}
	return out
}

// positionalArguments lists the non-keyword arguments of a call.
func positionalArguments(call *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		switch arg.Kind() {
		case "keyword_argument", "list_splat", "dictionary_splat":
			continue
		}
		out = append(out, arg)
	}
	return out
}

// lastSegment returns the final identifier of a dotted name.
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
