package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultParamRegexp is the implicit pattern of a placeholder without one.
const DefaultParamRegexp = `[^/]+`

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Segment is one piece of a route variant: a literal or a placeholder.
type Segment struct {
	Literal string
	Name    string
	Regexp  string
}

// IsParam reports whether the segment is a placeholder.
func (s Segment) IsParam() bool { return s.Name != "" }

// Variant is one concrete form of a pattern with its optional parts
// resolved.
type Variant []Segment

// Params returns the placeholder names in order.
func (v Variant) Params() []string {
	var names []string
	for _, s := range v {
		if s.IsParam() {
			names = append(names, s.Name)
		}
	}
	return names
}

// Pattern renders the variant in chi's routing syntax.
func (v Variant) Pattern() string {
	var b strings.Builder
	for _, s := range v {
		switch {
		case !s.IsParam():
			b.WriteString(s.Literal)
		case s.Regexp == DefaultParamRegexp:
			b.WriteString("{" + s.Name + "}")
		default:
			b.WriteString("{" + s.Name + ":" + s.Regexp + "}")
		}
	}
	return b.String()
}

// shape identifies the paths a variant matches, ignoring placeholder names.
func (v Variant) shape() string {
	var b strings.Builder
	for _, s := range v {
		if s.IsParam() {
			b.WriteString("{" + s.Regexp + "}")
			continue
		}
		b.WriteString(s.Literal)
	}
	return b.String()
}

// Parse splits pattern into its variants, least specific first.
//
// Optional parts are written in brackets and may only trail the pattern:
//
//	/archive/{year}[/{month}[/{day}]]
//
// yields /archive/{year}, /archive/{year}/{month} and
// /archive/{year}/{month}/{day}. Placeholders are {name} or {name:regexp}.
func Parse(pattern string) ([]Variant, error) {
	parts, err := splitOptional(pattern)
	if err != nil {
		return nil, err
	}

	variants := make([]Variant, 0, len(parts))
	current := ""
	for i, part := range parts {
		if part == "" && i != 0 {
			return nil, fmt.Errorf("%w: empty optional part in %q", ErrBadPattern, pattern)
		}
		current += part
		v, err := parsePlaceholders(current)
		if err != nil {
			return nil, fmt.Errorf("%w in %q", err, pattern)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// splitOptional cuts pattern at each top-level '[' after dropping the
// trailing ']' run, checking that brackets only close at the end.
func splitOptional(pattern string) ([]string, error) {
	trimmed := strings.TrimRight(pattern, "]")
	closing := len(pattern) - len(trimmed)

	var (
		parts []string
		start int
		depth int
	)
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '[':
			if depth == 0 {
				parts = append(parts, trimmed[start:i])
				start = i + 1
			}
		case ']':
			if depth == 0 {
				return nil, fmt.Errorf("%w: optional segments can only occur at the end of %q", ErrBadPattern, pattern)
			}
		}
	}
	parts = append(parts, trimmed[start:])

	if closing != len(parts)-1 {
		return nil, fmt.Errorf("%w: unbalanced '[' and ']' in %q", ErrBadPattern, pattern)
	}
	return parts, nil
}

func parsePlaceholders(route string) (Variant, error) {
	var (
		v    Variant
		seen = map[string]bool{}
		lit  strings.Builder
	)

	for i := 0; i < len(route); i++ {
		if route[i] != '{' {
			lit.WriteByte(route[i])
			continue
		}

		end := closingBrace(route, i)
		if end < 0 {
			return nil, fmt.Errorf("%w: unclosed '{'", ErrBadPattern)
		}
		seg, err := placeholder(route[i+1 : end])
		if err != nil {
			return nil, err
		}
		if seen[seg.Name] {
			return nil, fmt.Errorf("%w: placeholder %q used twice", ErrBadPattern, seg.Name)
		}
		seen[seg.Name] = true

		if lit.Len() > 0 {
			v = append(v, Segment{Literal: lit.String()})
			lit.Reset()
		}
		v = append(v, seg)
		i = end
	}
	if lit.Len() > 0 {
		v = append(v, Segment{Literal: lit.String()})
	}
	return v, nil
}

// closingBrace returns the index of the '}' matching the '{' at open.
func closingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func placeholder(body string) (Segment, error) {
	name, re, hasRe := strings.Cut(body, ":")
	name = strings.TrimSpace(name)
	if !paramName.MatchString(name) {
		return Segment{}, fmt.Errorf("%w: invalid placeholder name %q", ErrBadPattern, name)
	}

	re = strings.TrimSpace(re)
	if !hasRe || re == "" {
		re = DefaultParamRegexp
	}
	if _, err := regexp.Compile(re); err != nil {
		return Segment{}, fmt.Errorf("%w: placeholder %q: %v", ErrBadPattern, name, err)
	}
	return Segment{Name: name, Regexp: re}, nil
}
