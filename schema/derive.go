package schema

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	ErrNoForm        = errors.New("no form matches the selector")
	ErrAmbiguousForm = errors.New("more than one form matches the selector")
)

// Derive inspects one HTML document and produces the validation schema
// for its form: one property per named control (or per group name for
// checkboxes and radios), with additionalProperties always rejected.
//
// Properties are emitted in a fixed category pass order, not document
// order, so the serialized schema is stable for a given source.
func Derive(document []byte, selector string) (*FormSchema, error) {
	root, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	form, err := selectOne(root, selector)
	if err != nil {
		return nil, err
	}

	var (
		texts, numbers, sliders, areas, selects []*html.Node
		checks, radios                          groups
	)
	eachElement(form, func(n *html.Node) {
		name := attr(n, "name")
		if name == "" {
			return
		}
		switch n.Data {
		case "input":
			switch attr(n, "type") {
			case "text", "search":
				texts = append(texts, n)
			case "number":
				numbers = append(numbers, n)
			case "range":
				sliders = append(sliders, n)
			case "checkbox":
				checks.add(name, n)
			case "radio":
				radios.add(name, n)
			}
		case "textarea":
			areas = append(areas, n)
		case "select":
			selects = append(selects, n)
		case "v-slider":
			sliders = append(sliders, n)
		}
		// anything else is left out of the schema and will be
		// rejected by additionalProperties
	})

	schema := &FormSchema{}
	for _, n := range texts {
		if err := addString(schema, n); err != nil {
			return nil, err
		}
	}
	for _, n := range numbers {
		addInteger(schema, n)
	}
	for _, n := range sliders {
		addInteger(schema, n)
	}
	for _, n := range areas {
		if err := addString(schema, n); err != nil {
			return nil, err
		}
	}
	for _, n := range selects {
		addSelect(schema, n)
	}
	for _, name := range checks.order {
		addCheckboxGroup(schema, form, name, checks.byName[name])
	}
	for _, name := range radios.order {
		addRadioGroup(schema, name, radios.byName[name])
	}

	return schema, nil
}

func addString(s *FormSchema, n *html.Node) error {
	name := attr(n, "name")
	p := stringSchema{Type: "string"}

	if pattern := attr(n, "pattern"); pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid pattern for %q: %w", name, err)
		}
		p.Pattern = pattern
	}
	if v, err := strconv.Atoi(attr(n, "minlength")); err == nil && v > 0 {
		p.MinLength = &v
	}
	if v, err := strconv.Atoi(attr(n, "maxlength")); err == nil && v >= 0 {
		p.MaxLength = &v
	}

	s.add(name, p, hasAttr(n, "required"))
	return nil
}

func addInteger(s *FormSchema, n *html.Node) {
	p := integerSchema{Type: "integer"}

	// an unparsable bound is omitted, never defaulted: a zero
	// minimum would wrongly forbid negative values
	if v, err := strconv.Atoi(attr(n, "min")); err == nil {
		p.Minimum = &v
	}
	if v, err := strconv.Atoi(attr(n, "max")); err == nil {
		p.Maximum = &v
	}

	s.add(attr(n, "name"), p, hasAttr(n, "required"))
}

func addSelect(s *FormSchema, n *html.Node) {
	var values []string
	eachElement(n, func(opt *html.Node) {
		if opt.Data != "option" {
			return
		}
		if v := attr(opt, "value"); v != "" {
			values = appendUnique(values, v)
		}
	})
	s.add(attr(n, "name"), enumSchema{Enum: values}, hasAttr(n, "required"))
}

func addCheckboxGroup(s *FormSchema, form *html.Node, name string, members []*html.Node) {
	var values []string
	required := false
	for _, n := range members {
		if v := attr(n, "value"); v != "" {
			values = appendUnique(values, v)
		}
		required = required || hasAttr(n, "required")
	}

	min := groupMin(form, members[0])
	s.add(name, oneOfSchema{OneOf: []any{
		enumSchema{Enum: values},
		arraySchema{
			Type:        "array",
			Items:       enumSchema{Enum: values},
			MinItems:    min,
			MaxItems:    len(values),
			UniqueItems: true,
		},
	}}, required || min > 1)
}

func addRadioGroup(s *FormSchema, name string, members []*html.Node) {
	var values []string
	required := false
	for _, n := range members {
		if v := attr(n, "value"); v != "" {
			values = appendUnique(values, v)
		}
		required = required || hasAttr(n, "required")
	}
	s.add(name, enumSchema{Enum: values}, required)
}

// groupMin reads the minimum cardinality of a checkbox group from a
// "min" attribute on the closest enclosing element (the group wrapper),
// stopping at the form. Defaults to 1.
func groupMin(form, member *html.Node) int {
	for n := member.Parent; n != nil && n != form.Parent; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if v, err := strconv.Atoi(attr(n, "min")); err == nil && v >= 1 {
			return v
		}
	}
	return 1
}

// groups keeps same-named controls together in first-seen order.
type groups struct {
	order  []string
	byName map[string][]*html.Node
}

func (g *groups) add(name string, n *html.Node) {
	if g.byName == nil {
		g.byName = make(map[string][]*html.Node)
	}
	if _, seen := g.byName[name]; !seen {
		g.order = append(g.order, name)
	}
	g.byName[name] = append(g.byName[name], n)
}

type cssSelector struct {
	tag     string
	id      string
	classes []string
}

// parseSelector handles the subset of CSS needed to single out a form
// element: tag, #id and .class atoms, in any combination.
func parseSelector(s string) (sel cssSelector, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sel, errors.New("empty selector")
	}
	for s != "" {
		rest := strings.IndexAny(s[1:], "#.")
		atom := s
		if rest >= 0 {
			atom, s = s[:rest+1], s[rest+1:]
		} else {
			s = ""
		}
		switch {
		case strings.HasPrefix(atom, "#"):
			sel.id = atom[1:]
		case strings.HasPrefix(atom, "."):
			sel.classes = append(sel.classes, atom[1:])
		default:
			sel.tag = atom
		}
	}
	return sel, nil
}

func (sel cssSelector) matches(n *html.Node) bool {
	if sel.tag != "" && n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attr(n, "id") != sel.id {
		return false
	}
	classes := strings.Fields(attr(n, "class"))
	for _, want := range sel.classes {
		found := false
		for _, c := range classes {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func selectOne(root *html.Node, selector string) (*html.Node, error) {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	var matches []*html.Node
	eachElement(root, func(n *html.Node) {
		if sel.matches(n) {
			matches = append(matches, n)
		}
	})
	switch len(matches) {
	case 0:
		return nil, ErrNoForm
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousForm
	}
}

// eachElement visits every element under n (excluded) in document order.
func eachElement(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			visit(c)
		}
		eachElement(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func appendUnique(values []string, v string) []string {
	for _, seen := range values {
		if seen == v {
			return values
		}
	}
	return append(values, v)
}
