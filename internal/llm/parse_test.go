package llm

import (
	"strings"
	"testing"

	"charterbench/internal/charter"
)

func TestParseValidationResponse_Plain(t *testing.T) {
	res, err := parseValidationResponse(`{"is_valid": false, "violations": ["personal_attack"], "encouraged_aspects": [], "confidence": 0.93, "reasoning": "Attaque nominative", "category": "economie"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.IsValid {
		t.Fatal("expected invalid verdict")
	}
	if len(res.Violations) != 1 || res.Violations[0] != "personal_attack" {
		t.Fatalf("violations: %v", res.Violations)
	}
	if res.Confidence != 0.93 {
		t.Fatalf("confidence: %v", res.Confidence)
	}
	if res.PredictedCategory != "economie" {
		t.Fatalf("category: %q", res.PredictedCategory)
	}
}

func TestParseValidationResponse_MarkdownFences(t *testing.T) {
	res, err := parseValidationResponse("```json\n{\"is_valid\": true, \"confidence\": 0.8}\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !res.IsValid || res.Confidence != 0.8 {
		t.Fatalf("fenced response misparsed: %+v", res)
	}
}

func TestParseValidationResponse_MissingVerdictIsError(t *testing.T) {
	if _, err := parseValidationResponse(`{"confidence": 0.9}`); err == nil {
		t.Fatal("missing is_valid must not default to a verdict")
	}
}

func TestParseValidationResponse_Garbage(t *testing.T) {
	if _, err := parseValidationResponse("Je ne peux pas répondre en JSON."); err == nil {
		t.Fatal("non-JSON response must fail")
	}
}

func TestParseValidationResponse_ConfidenceVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"string number", `{"is_valid": true, "confidence": "0.7"}`, 0.7},
		{"missing", `{"is_valid": true}`, 0.5},
		{"out of range high", `{"is_valid": true, "confidence": 1.4}`, 1.0},
		{"out of range low", `{"is_valid": true, "confidence": -0.2}`, 0.0},
		{"non numeric", `{"is_valid": true, "confidence": "élevée"}`, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := parseValidationResponse(tc.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if res.Confidence != tc.want {
				t.Fatalf("confidence = %v, want %v", res.Confidence, tc.want)
			}
		})
	}
}

func TestParseValidationResponse_UnknownCategoryDropped(t *testing.T) {
	res, err := parseValidationResponse(`{"is_valid": true, "category": "fiscalité nationale"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.PredictedCategory != "" {
		t.Fatalf("unknown category must be dropped, got %q", res.PredictedCategory)
	}
}

func TestParseRewriteResponse(t *testing.T) {
	out, err := parseRewriteResponse("```\n«Le port souffre d'un manque de stationnement.»\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "Le port souffre d'un manque de stationnement." {
		t.Fatalf("got %q", out)
	}

	if _, err := parseRewriteResponse("``` ```"); err == nil {
		t.Fatal("empty rewrite must fail so the caller can fall back")
	}
}

func TestBuildRewritePromptsUnknownKind(t *testing.T) {
	if _, _, err := buildRewritePrompts("texte", charter.MutationKind("ironie")); err == nil {
		t.Fatal("unknown mutation kind must fail")
	}
}

func TestBuildClassifierPromptsIncludesBothFields(t *testing.T) {
	_, user := buildClassifierPrompts("Le port manque de places", "Créer un parking relais", "economie")
	for _, want := range []string{"Le port manque de places", "Créer un parking relais", "economie"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
}
