package retrieval

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/cel-go/cel"
)

// BoostQuery is a preprocessed query shared by all boost rules of one ranking.
type BoostQuery struct {
	Text   string
	tokens map[string]struct{}
}

// NewBoostQuery preprocesses query for rule matching.
func NewBoostQuery(query string) BoostQuery {
	text := Preprocess(query, DefaultMaxInputRunes)
	tokens := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		tokens[tok] = struct{}{}
	}
	return BoostQuery{Text: text, tokens: tokens}
}

// HasAny reports whether the query contains any of words as a whole token.
func (q BoostQuery) HasAny(words ...string) bool {
	for _, w := range words {
		if _, ok := q.tokens[w]; ok {
			return true
		}
	}
	return false
}

// BoostRule yields a multiplicative relevance boost when it matches a cue for a query.
type BoostRule interface {
	Boost(q BoostQuery, cue *Cue) (float64, bool)
}

// KeywordRule boosts cues of Category when the query contains one of Keywords.
type KeywordRule struct {
	Category string
	Keywords []string
	Factor   float64
}

// Boost implements BoostRule.
func (r KeywordRule) Boost(q BoostQuery, cue *Cue) (float64, bool) {
	if !strings.EqualFold(cue.Category, r.Category) {
		return 0, false
	}
	if !q.HasAny(r.Keywords...) {
		return 0, false
	}
	return r.Factor, true
}

// DefaultBoostRules returns the built-in keyword table.
func DefaultBoostRules() []BoostRule {
	return []BoostRule{
		KeywordRule{
			Category: "technical",
			Factor:   1.3,
			Keywords: []string{
				"code", "coding", "programming", "program", "api", "bug", "debug",
				"function", "database", "sql", "framework", "library", "compile",
				"react", "hooks", "javascript", "typescript", "python", "golang",
				"rust", "java", "css", "html", "frontend", "backend", "docker",
				"kubernetes", "git", "deploy", "algorithm", "script",
			},
		},
		KeywordRule{
			Category: "communication",
			Factor:   1.2,
			Keywords: []string{
				"write", "writing", "email", "reply", "message", "explain",
				"tone", "concise", "detailed", "style", "communicate",
			},
		},
		KeywordRule{
			Category: "personal",
			Factor:   1.2,
			Keywords: []string{
				"like", "love", "hobby", "favorite", "enjoy", "food", "coffee",
				"music", "family", "weekend", "travel",
			},
		},
		KeywordRule{
			Category: "work",
			Factor:   1.2,
			Keywords: []string{
				"work", "job", "meeting", "project", "deadline", "team",
				"manager", "career", "office", "schedule",
			},
		},
		KeywordRule{
			Category: "learning",
			Factor:   1.2,
			Keywords: []string{
				"learn", "learning", "study", "tutorial", "course",
				"understand", "practice", "teach", "book",
			},
		},
	}
}

// categoryBoost returns the highest boost among matching rules, or 1.
func categoryBoost(rules []BoostRule, q BoostQuery, cue *Cue) float64 {
	best, matched := 0.0, false
	for _, rule := range rules {
		if b, ok := rule.Boost(q, cue); ok && (!matched || b > best) {
			best, matched = b, true
		}
	}
	if !matched {
		return 1
	}
	return best
}

// CELRule boosts a cue when a boolean CEL expression holds. The expression
// sees the string variables query (preprocessed), category, key and cue_type.
type CELRule struct {
	expr    string
	factor  float64
	program cel.Program
}

// NewCELRule compiles expr. It must evaluate to bool.
func NewCELRule(expr string, factor float64) (*CELRule, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("boost factor must be positive, got %v", factor)
	}

	env, err := cel.NewEnv(
		cel.Variable("query", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("key", cel.StringType),
		cel.Variable("cue_type", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile boost rule %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("boost rule %q must return bool, got %v", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build boost rule %q: %w", expr, err)
	}

	return &CELRule{expr: expr, factor: factor, program: program}, nil
}

// ParseCELRule parses "factor:expression", e.g. `1.25:category == "work"`.
func ParseCELRule(raw string) (*CELRule, error) {
	factorText, expr, ok := strings.Cut(raw, ":")
	if !ok || strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("boost rule %q must look like factor:expression", raw)
	}
	var factor float64
	if _, err := fmt.Sscanf(strings.TrimSpace(factorText), "%g", &factor); err != nil {
		return nil, fmt.Errorf("boost rule %q has invalid factor: %w", raw, err)
	}
	return NewCELRule(strings.TrimSpace(expr), factor)
}

// Boost implements BoostRule. Evaluation errors count as no match.
func (r *CELRule) Boost(q BoostQuery, cue *Cue) (float64, bool) {
	out, _, err := r.program.Eval(map[string]any{
		"query":    q.Text,
		"category": strings.ToLower(cue.Category),
		"key":      cue.Key,
		"cue_type": string(cue.Type),
	})
	if err != nil {
		slog.Debug("boost rule evaluation failed", "rule", r.expr, "error", err)
		return 0, false
	}
	if matched, ok := out.Value().(bool); ok && matched {
		return r.factor, true
	}
	return 0, false
}

// String returns the source expression.
func (r *CELRule) String() string { return r.expr }
