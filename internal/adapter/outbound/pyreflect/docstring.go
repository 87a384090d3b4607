package pyreflect

import (
	"regexp"
	"strings"
)

// Docstring is the part of a function docstring used to describe a tool.
type Docstring struct {
	Description string
	Params      map[string]string
	Returns     string
}

var (
	googleSection = regexp.MustCompile(`^(Args|Arguments|Parameters|Params|Keyword Args|Keyword Arguments|Returns|Return|Yields|Raises|Exceptions|Examples?|Notes?|Attributes|See Also|Todo)\s*:\s*$`)
	googleParam   = regexp.MustCompile(`^\*{0,2}([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))?\s*:\s*(.*)$`)
	restField     = regexp.MustCompile(`^:(param|parameter|arg|argument|key|keyword)\s+(?:[^:]*\s)?([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.*)$`)
	restReturns   = regexp.MustCompile(`^:(returns?)\s*:\s*(.*)$`)
)

// ParseDocstring understands Google style (Args:/Returns:) and reST
// (:param x: / :returns:) docstrings.
func ParseDocstring(raw string) Docstring {
	lines := cleandoc(raw)
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if restField.MatchString(t) || restReturns.MatchString(t) {
			return parseReST(lines)
		}
	}
	return parseGoogle(lines)
}

// cleandoc strips the common indentation of every line after the first, the
// same way Python's inspect.cleandoc does.
func cleandoc(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\t", "    "), "\n")
	indent := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		if n := len(l) - len(trimmed); indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func indentOf(l string) int {
	return len(l) - len(strings.TrimLeft(l, " "))
}

func parseGoogle(lines []string) Docstring {
	doc := Docstring{Params: map[string]string{}}

	var (
		desc    []string
		section string
		current string
		base    = -1
	)
	appendTo := func(key, s string) {
		if key == "" {
			if doc.Returns == "" {
				doc.Returns = s
			} else {
				doc.Returns += "\n" + s
			}
			return
		}
		if doc.Params[key] == "" {
			doc.Params[key] = s
		} else {
			doc.Params[key] += "\n" + s
		}
	}

	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if m := googleSection.FindStringSubmatch(trimmed); m != nil && indentOf(l) == 0 {
			section = strings.ToLower(m[1])
			current, base = "", -1
			continue
		}

		switch section {
		case "":
			desc = append(desc, l)
		case "args", "arguments", "parameters", "params", "keyword args", "keyword arguments":
			if trimmed == "" {
				continue
			}
			if base < 0 {
				base = indentOf(l)
			}
			if indentOf(l) <= base {
				if m := googleParam.FindStringSubmatch(trimmed); m != nil {
					current = m[1]
					doc.Params[current] = strings.TrimSpace(m[3])
					continue
				}
			}
			if current != "" {
				appendTo(current, trimmed)
			}
		case "returns", "return", "yields":
			if trimmed == "" {
				continue
			}
			if doc.Returns == "" {
				// "type: description" on the first line keeps only the description.
				if i := strings.Index(trimmed, ":"); i > 0 && !strings.Contains(trimmed[:i], " ") {
					trimmed = strings.TrimSpace(trimmed[i+1:])
				}
			}
			appendTo("", trimmed)
		}
	}

	doc.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return doc
}

func parseReST(lines []string) Docstring {
	doc := Docstring{Params: map[string]string{}}

	var (
		desc      []string
		inFields  bool
		current   string
		inReturns bool
	)
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, ":") {
			inFields = true
			current, inReturns = "", false
			if m := restField.FindStringSubmatch(trimmed); m != nil {
				current = m[2]
				doc.Params[current] = strings.TrimSpace(m[3])
			} else if m := restReturns.FindStringSubmatch(trimmed); m != nil {
				inReturns = true
				doc.Returns = strings.TrimSpace(m[2])
			}
			continue
		}
		if !inFields {
			desc = append(desc, l)
			continue
		}
		if trimmed == "" {
			continue
		}
		switch {
		case current != "":
			doc.Params[current] = strings.TrimSpace(doc.Params[current] + "\n" + trimmed)
		case inReturns:
			doc.Returns = strings.TrimSpace(doc.Returns + "\n" + trimmed)
		}
	}

	doc.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return doc
}
