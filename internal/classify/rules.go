package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"filesorter/internal/config"
	"filesorter/internal/services/backend"
)

// Kind selects how a rule condition is evaluated.
type Kind string

const (
	KindExtension Kind = "extension"
	KindKeyword   Kind = "keyword"
	KindRegex     Kind = "regex"
)

// Condition holds the kind-specific match parameters. Only the fields for the
// rule's Kind are consulted.
type Condition struct {
	Extensions    []string `json:"extensions,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
	Pattern       string   `json:"pattern,omitempty"`
}

// Rule is a user-defined classification rule.
type Rule struct {
	ID          string
	Name        string
	Kind        Kind
	Condition   Condition
	Destination string
	Priority    int
}

// FromWire converts a rule served by the classification service.
func FromWire(r backend.Rule) (Rule, error) {
	rule := Rule{
		ID:          r.ID,
		Name:        r.Name,
		Kind:        Kind(strings.ToLower(strings.TrimSpace(r.ConditionType))),
		Destination: r.Destination,
		Priority:    r.Priority,
	}
	if len(r.ConditionValue) > 0 && string(r.ConditionValue) != "null" {
		if err := json.Unmarshal(r.ConditionValue, &rule.Condition); err != nil {
			return Rule{}, fmt.Errorf("rule %s: decode condition_value: %w", r.ID, err)
		}
	}
	dest, err := validateDestination(r.Destination)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	rule.Destination = dest
	return rule, nil
}

// FromWireAll converts every rule it can and returns the conversion errors for the rest.
func FromWireAll(wire []backend.Rule) ([]Rule, []error) {
	rules := make([]Rule, 0, len(wire))
	var errs []error
	for _, w := range wire {
		rule, err := FromWire(w)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, errs
}

// Wire converts the rule back to the service representation.
func (r Rule) Wire() backend.Rule {
	value, _ := json.Marshal(r.Condition)
	return backend.Rule{
		ID:             r.ID,
		Name:           r.Name,
		ConditionType:  string(r.Kind),
		ConditionValue: value,
		Destination:    r.Destination,
		Priority:       r.Priority,
	}
}

// FromConfig converts rules declared in the config file.
func FromConfig(rules []config.Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, Rule{
			ID:   r.ID,
			Name: r.Name,
			Kind: Kind(r.Type),
			Condition: Condition{
				Extensions:    r.Extensions,
				Keywords:      r.Keywords,
				CaseSensitive: r.CaseSensitive,
				Pattern:       r.Pattern,
			},
			Destination: r.Destination,
			Priority:    r.Priority,
		})
	}
	return out
}

// compiledRule is a Rule with its matcher prepared once.
type compiledRule struct {
	Rule
	extensions map[string]struct{}
	keywords   []string
	pattern    *regexp.Regexp
	invalid    error
}

func compileRule(rule Rule) compiledRule {
	c := compiledRule{Rule: rule}
	switch rule.Kind {
	case KindExtension:
		c.extensions = make(map[string]struct{}, len(rule.Condition.Extensions))
		for _, ext := range rule.Condition.Extensions {
			if normalized := normalizeExtension(ext); normalized != "" {
				c.extensions[normalized] = struct{}{}
			}
		}
	case KindKeyword:
		for _, kw := range rule.Condition.Keywords {
			if strings.TrimSpace(kw) == "" {
				continue
			}
			if rule.Condition.CaseSensitive {
				c.keywords = append(c.keywords, norm.NFC.String(kw))
			} else {
				c.keywords = append(c.keywords, foldKeyword(kw))
			}
		}
	case KindRegex:
		re, err := regexp.Compile(rule.Condition.Pattern)
		if err != nil {
			c.invalid = fmt.Errorf("rule %s: invalid pattern %q: %w", rule.ID, rule.Condition.Pattern, err)
		} else {
			c.pattern = re
		}
	default:
		c.invalid = fmt.Errorf("rule %s: unknown condition type %q", rule.ID, rule.Kind)
	}
	return c
}

func (c compiledRule) matches(req Request) bool {
	if c.invalid != nil {
		return false
	}
	switch c.Kind {
	case KindExtension:
		_, ok := c.extensions[normalizeExtension(req.Extension)]
		return ok
	case KindKeyword:
		name := norm.NFC.String(req.Filename)
		if !c.Condition.CaseSensitive {
			name = foldKeyword(req.Filename)
		}
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return true
			}
		}
		return false
	case KindRegex:
		return c.pattern.MatchString(req.Filename)
	default:
		return false
	}
}

// sortRules orders rules by descending priority, keeping input order for ties.
func sortRules(rules []compiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
}

func foldKeyword(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
