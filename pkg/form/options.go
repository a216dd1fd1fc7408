package form

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-fieldmask/pkg/field"
)

// Option configures a Session before construction.
type Option func(*config)

type config struct {
	logger     *zap.Logger
	crossRules []CrossFieldRule
	asyncRules []AsyncRule
	evaluators map[string]Evaluator
	fieldRules map[string][]field.Rule
}

func defaultConfig() *config {
	return &config{
		logger:     zap.NewNop(),
		evaluators: make(map[string]Evaluator),
		fieldRules: make(map[string][]field.Rule),
	}
}

// WithLogger wires a zap logger for rule-evaluation failures. The default
// is a no-op logger, keeping the engine silent unless a caller opts in.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCrossRules appends programmatic cross-field rules after the
// definition's declarative ones.
func WithCrossRules(rules ...CrossFieldRule) Option {
	return func(cfg *config) {
		cfg.crossRules = append(cfg.crossRules, rules...)
	}
}

// WithEvaluator supplies the evaluator backing a definition-declared cross
// rule of kind "custom", keyed by the rule's ID.
func WithEvaluator(ruleID string, eval Evaluator) Option {
	return func(cfg *config) {
		if ruleID != "" && eval != nil {
			cfg.evaluators[ruleID] = eval
		}
	}
}

// WithAsyncRules registers rules whose evaluation requires external data.
func WithAsyncRules(rules ...AsyncRule) Option {
	return func(cfg *config) {
		cfg.asyncRules = append(cfg.asyncRules, rules...)
	}
}

// WithFieldRules appends rules (typically custom predicates, which cannot
// travel through configuration) to one field's declared set.
func WithFieldRules(fieldName string, rules ...field.Rule) Option {
	return func(cfg *config) {
		if fieldName == "" {
			return
		}
		cfg.fieldRules[fieldName] = append(cfg.fieldRules[fieldName], rules...)
	}
}
