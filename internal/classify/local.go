package classify

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"filesorter/internal/logging"
	"filesorter/internal/resolve"
)

// Local classifies files from user rules and the built-in extension table.
// It never returns an error and is safe for concurrent use.
type Local struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rules []compiledRule
}

// NewLocal constructs a local classifier seeded with rules.
func NewLocal(logger *slog.Logger, rules ...Rule) *Local {
	l := &Local{logger: logging.NewComponentLogger(logger, "classifier")}
	l.SetRules(rules)
	return l
}

// SetRules replaces the rule set in full.
func (l *Local) SetRules(rules []Rule) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		c := compileRule(rule)
		if c.invalid != nil {
			logging.WarnWithContext(l.logger, "rule disabled", "rule_invalid",
				logging.String("rule_id", rule.ID),
				logging.String("rule_name", rule.Name),
				logging.Error(c.invalid),
				logging.String(logging.FieldErrorHint, "fix the rule condition on the dashboard or in classifier.rules"),
				logging.String(logging.FieldImpact, "rule never matches"),
			)
		}
		compiled = append(compiled, c)
	}
	sortRules(compiled)

	l.mu.Lock()
	l.rules = compiled
	l.mu.Unlock()

	l.logger.Debug("rules loaded", logging.Int("count", len(compiled)))
}

// Rules returns the active rules in evaluation order.
func (l *Local) Rules() []Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Rule, len(l.rules))
	for i, c := range l.rules {
		out[i] = c.Rule
	}
	return out
}

// Classify implements Provider.
func (l *Local) Classify(_ context.Context, req Request) (Result, error) {
	return l.classify(req), nil
}

func (l *Local) classify(req Request) Result {
	l.mu.RLock()
	rules := l.rules
	l.mu.RUnlock()

	for _, rule := range rules {
		if !rule.matches(req) {
			continue
		}
		category := rule.Name
		if strings.TrimSpace(category) == "" {
			category = rule.Destination
		}
		return Result{
			Category:         category,
			Destination:      rule.Destination,
			Confidence:       1.0,
			RuleID:           rule.ID,
			RuleName:         rule.Name,
			Method:           MethodLocalRule,
			ConflictStrategy: resolve.StrategySkip,
		}
	}

	if category, ok := CategoryForExtension(req.Extension); ok {
		return Result{
			Category:         category,
			Destination:      category,
			Confidence:       0.8,
			Method:           MethodLocalExtension,
			ConflictStrategy: resolve.StrategySkip,
		}
	}

	return Result{
		Category:         DefaultCategory,
		Destination:      DefaultCategory,
		Confidence:       0.5,
		Method:           MethodLocalDefault,
		ConflictStrategy: resolve.StrategySkip,
	}
}
