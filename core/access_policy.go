package core

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccessRule maps a route pattern to either public access or a role
// requirement. A pattern is an exact path, or a prefix followed by "/**".
// An empty Role with Public=false means any authenticated principal.
type AccessRule struct {
	Pattern string
	Public  bool
	Role    Role
}

// AccessPolicy is the ordered, immutable route access table, built once at
// startup. Matching is deterministic: the most specific pattern (longest
// literal prefix) wins, with declaration order breaking ties.
type AccessPolicy struct {
	rules []AccessRule
}

// NewAccessPolicy builds a policy from rules. The slice is copied and sorted
// by specificity; callers cannot mutate the policy afterwards.
func NewAccessPolicy(rules []AccessRule) *AccessPolicy {
	sorted := make([]AccessRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(patternLiteral(sorted[i].Pattern)) > len(patternLiteral(sorted[j].Pattern))
	})
	return &AccessPolicy{rules: sorted}
}

// DefaultAccessPolicy mirrors the service's built-in route table: auth and
// health endpoints are public, admin endpoints need the ADMIN role, and
// everything else needs an authenticated principal.
func DefaultAccessPolicy() *AccessPolicy {
	return NewAccessPolicy([]AccessRule{
		{Pattern: "/api/auth/**", Public: true},
		{Pattern: "/healthz", Public: true},
		{Pattern: "/favicon.ico", Public: true},
		{Pattern: "/api/admin/**", Role: RoleAdmin},
	})
}

// Match returns the rule governing path. Paths with no matching rule fall
// through to an authenticated-only rule, never to public.
func (p *AccessPolicy) Match(path string) AccessRule {
	for _, r := range p.rules {
		if patternMatches(r.Pattern, path) {
			return r
		}
	}
	return AccessRule{Pattern: path}
}

// IsPublic reports whether path may be served without any token inspection.
func (p *AccessPolicy) IsPublic(path string) bool {
	return p.Match(path).Public
}

func patternLiteral(pattern string) string {
	return strings.TrimSuffix(pattern, "/**")
}

func patternMatches(pattern, path string) bool {
	if lit := strings.TrimSuffix(pattern, "/**"); lit != pattern {
		return path == lit || strings.HasPrefix(path, lit+"/")
	}
	return path == pattern
}

type policyFile struct {
	Rules []struct {
		Pattern string `yaml:"pattern"`
		Access  string `yaml:"access"`
		Role    string `yaml:"role"`
	} `yaml:"rules"`
}

// LoadAccessPolicy reads a YAML rule file and replaces the default table.
// Rules with both access: public and a role, or with an unknown role, are
// configuration errors.
func LoadAccessPolicy(path string) (*AccessPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access policy %s: %w", path, err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse access policy %s: %w", path, err)
	}
	if len(pf.Rules) == 0 {
		return nil, fmt.Errorf("access policy %s contains no rules", path)
	}

	rules := make([]AccessRule, 0, len(pf.Rules))
	for i, fr := range pf.Rules {
		if strings.TrimSpace(fr.Pattern) == "" {
			return nil, fmt.Errorf("access policy rule %d has empty pattern", i)
		}
		rule := AccessRule{Pattern: fr.Pattern}
		switch {
		case fr.Access == "public" && fr.Role == "":
			rule.Public = true
		case fr.Access == "public":
			return nil, fmt.Errorf("access policy rule %q is public but names a role", fr.Pattern)
		case fr.Role != "":
			role, err := ParseRole(fr.Role)
			if err != nil {
				return nil, fmt.Errorf("access policy rule %q: %w", fr.Pattern, err)
			}
			rule.Role = role
		}
		rules = append(rules, rule)
	}
	return NewAccessPolicy(rules), nil
}
