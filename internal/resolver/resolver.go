// Package resolver extracts work item identifiers from branch names and
// titles using an ordered list of configurable rules.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/logger"
	"github.com/thomas-vilte/shipsheet/internal/models"
	"github.com/thomas-vilte/shipsheet/internal/regex"
)

type compiledRule struct {
	rule models.ExtractionRule
	re   *regexp.Regexp // nil when the pattern does not compile
}

// Resolver is safe for concurrent use once built.
type Resolver struct {
	rules  []compiledRule
	policy models.ResolutionPolicy
}

type Option func(*options)

type options struct {
	ctx context.Context
}

// WithContext sets the context whose logger reports broken patterns.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// New validates the rules and compiles their patterns. A pattern that does not
// compile is logged and disables only its own rule.
func New(rules []models.ExtractionRule, policy models.ResolutionPolicy, opts ...Option) (*Resolver, error) {
	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	if policy == "" {
		policy = models.PolicyWarn
	}
	if policy != models.PolicyWarn && policy != models.PolicyFail {
		return nil, apperrors.ErrInvalidConfig.
			WithContext("detail", fmt.Sprintf("unknown resolution policy %q", policy))
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, apperrors.ErrInvalidRule.
				WithError(err).
				WithContext("detail", fmt.Sprintf("rule #%d %q", i+1, r.Name))
		}

		pattern := r.Pattern
		if !r.CaseSensitive {
			pattern = "(?i)" + pattern
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn(o.ctx, "extraction rule disabled, pattern does not compile",
				"rule", r.Name,
				"pattern", r.Pattern,
				"error", err)
		}
		compiled = append(compiled, compiledRule{rule: r, re: re})
	}

	return &Resolver{rules: compiled, policy: policy}, nil
}

func validateRule(r models.ExtractionRule) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if r.CaptureGroup < 0 {
		return fmt.Errorf("capture_group must be >= 0, got %d", r.CaptureGroup)
	}
	return nil
}

// DefaultRules covers the common branch naming conventions.
func DefaultRules() []models.ExtractionRule {
	return []models.ExtractionRule{
		{Name: "feature-folder", Pattern: regex.BranchFeatureFolder, CaptureGroup: 1},
		{Name: "issue-name", Pattern: regex.BranchIssueName, CaptureGroup: 1},
		{Name: "id-prefix", Pattern: regex.BranchIssueID, CaseSensitive: true, CaptureGroup: 1},
		{Name: "leading-number", Pattern: regex.BranchIssueStart, CaptureGroup: 1},
		{Name: "folder-number", Pattern: regex.BranchIssueFolder, CaptureGroup: 1},
		{Name: "sharp", Pattern: regex.BranchIssueSharp, CaptureGroup: 1},
	}
}

func (r *Resolver) Policy() models.ResolutionPolicy {
	return r.policy
}

// Find tries every text in order and, for each text, every rule in order. The
// first rule yielding a non-negative integer wins. The policy is not applied.
func (r *Resolver) Find(texts ...string) (int, bool) {
	id, _, ok := r.Match(texts...)
	return id, ok
}

// Match is Find that also names the winning rule.
func (r *Resolver) Match(texts ...string) (int, string, bool) {
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, cr := range r.rules {
			if id, ok := cr.apply(text); ok {
				return id, cr.rule.Name, true
			}
		}
	}
	return 0, "", false
}

func (cr compiledRule) apply(text string) (int, bool) {
	if cr.re == nil {
		return 0, false
	}
	if cr.rule.CaptureGroup > cr.re.NumSubexp() {
		return 0, false
	}
	m := cr.re.FindStringSubmatchIndex(text)
	if m == nil {
		return 0, false
	}
	start, end := m[2*cr.rule.CaptureGroup], m[2*cr.rule.CaptureGroup+1]
	if start < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(text[start:end])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Resolve is Find with the configured policy applied when nothing matches:
// warn logs and reports ok == false, fail returns a resolution error.
func (r *Resolver) Resolve(ctx context.Context, texts ...string) (int, bool, error) {
	if id, ok := r.Find(texts...); ok {
		return id, true, nil
	}

	if r.policy == models.PolicyFail {
		return 0, false, apperrors.ErrResolution.WithContext("detail", fmt.Sprintf("%q", texts))
	}

	logger.Warn(ctx, "no extraction rule matched", "texts", texts)
	return 0, false, nil
}
