package formula

import (
	"fmt"
	"slices"
)

// ResolveContext classifies every raw context entry with ParseValue, keeping
// the variable names. Entries are visited in name order so the reported
// error is stable when several entries are malformed.
func (p *Parser) ResolveContext(raw map[string]string) (map[string]Value, error) {
	return p.resolveContext(raw, p.maxDepth)
}

func (p *Parser) resolveContext(raw map[string]string, limit int) (map[string]Value, error) {
	resolved := make(map[string]Value, len(raw))
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v, err := p.parseValue(raw[name], limit)
		if err != nil {
			return nil, fmt.Errorf("context variable %q: %w", name, err)
		}
		resolved[name] = v
	}
	return resolved, nil
}

// ResolveContext is a convenience function using the default parser
func ResolveContext(raw map[string]string) (map[string]Value, error) {
	return DefaultParser.ResolveContext(raw)
}
