package llm

import (
	"context"
	"fmt"
	"log"
	"sync"

	"charterbench/internal/charter"
)

// Validator is the production charter.Classifier. It is stateless apart
// from the usage counter and safe for concurrent use.
type Validator struct {
	cfg Config

	mu    sync.Mutex
	usage Usage
}

func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Classify validates one contribution. API and parse failures surface as
// errors; there is no fail-open default verdict here, the caller owns that
// policy.
func (v *Validator) Classify(ctx context.Context, primaryText, secondaryText, category string) (charter.ValidationResult, error) {
	if !charter.ValidCategory(category) {
		return charter.ValidationResult{}, fmt.Errorf("unknown category %q", category)
	}
	system, user := buildClassifierPrompts(primaryText, secondaryText, category)

	log.Printf("llm validate provider=%s model=%s chars=%d", v.provider(), v.cfg.model(), len(primaryText)+len(secondaryText))
	text, usage, err := complete(ctx, v.cfg, system, user)
	v.addUsage(usage)
	if err != nil {
		return charter.ValidationResult{}, err
	}
	return parseValidationResponse(text)
}

// Usage returns the accumulated token counts.
func (v *Validator) Usage() Usage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.usage
}

func (v *Validator) addUsage(u Usage) {
	v.mu.Lock()
	v.usage.Add(u)
	v.mu.Unlock()
}

func (v *Validator) provider() string {
	if v.cfg.Provider == "" {
		return "anthropic"
	}
	return v.cfg.Provider
}

// Rewriter is the production charter.TextRewriter.
type Rewriter struct {
	cfg Config

	mu    sync.Mutex
	usage Usage
}

func NewRewriter(cfg Config) *Rewriter {
	return &Rewriter{cfg: cfg}
}

// Rewrite transforms text according to kind. Output varies run-to-run;
// determinism is not part of the contract.
func (r *Rewriter) Rewrite(ctx context.Context, text string, kind charter.MutationKind) (string, error) {
	system, user, err := buildRewritePrompts(text, kind)
	if err != nil {
		return "", err
	}

	log.Printf("llm rewrite kind=%s model=%s chars=%d", kind, r.cfg.model(), len(text))
	response, usage, err := complete(ctx, r.cfg, system, user)
	r.mu.Lock()
	r.usage.Add(usage)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return parseRewriteResponse(response)
}

func (r *Rewriter) Usage() Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}
