package form_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-fieldmask/pkg/field"
	"github.com/goliatone/go-fieldmask/pkg/form"
	"github.com/goliatone/go-fieldmask/pkg/formdef"
	"github.com/goliatone/go-fieldmask/pkg/validate"
)

func limitsDefinition() *formdef.Definition {
	return &formdef.Definition{
		Name: "limits",
		Fields: []formdef.FieldDef{
			{
				Attribute: field.AttributeSpec{Name: "creditLimit", MaxLength: 15, Mask: "+ZZZ,ZZZ,ZZZ.99"},
				Rules:     []formdef.RuleDef{{Kind: field.RulePattern}},
			},
			{
				Attribute: field.AttributeSpec{Name: "cashLimit", MaxLength: 15, Mask: "+ZZZ,ZZZ,ZZZ.99"},
				Rules:     []formdef.RuleDef{{Kind: field.RulePattern}},
			},
		},
		CrossRules: []formdef.CrossRuleDef{
			{
				ID:         "cash-within-credit",
				Kind:       form.CrossKindAmountNotAbove,
				Fields:     []string{"cashLimit", "creditLimit"},
				Dependents: []string{"cashLimit"},
			},
		},
	}
}

func TestCashLimitWithinCreditLimit(t *testing.T) {
	session, err := form.NewSession(limitsDefinition())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, _, err := session.SetValue(ctx, "creditLimit", "5000.00"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	result, _, err := session.SetValue(ctx, "cashLimit", "6000.00")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	if result.IsValid {
		t.Fatal("cash limit above credit limit should fail")
	}
	if len(result.CrossFieldErrors) != 1 {
		t.Fatalf("cross errors = %+v, want exactly one", result.CrossFieldErrors)
	}
	got := result.CrossFieldErrors[0]
	if got.RuleID != "cash-within-credit" {
		t.Fatalf("rule id = %q", got.RuleID)
	}
	if got.Message != "cashLimit must not exceed creditLimit" {
		t.Fatalf("message = %q, want both field names", got.Message)
	}

	// Swap the values: 5000 cash against 6000 credit is fine.
	if _, _, err := session.SetValue(ctx, "creditLimit", "6000.00"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	result, _, err = session.SetValue(ctx, "cashLimit", "5000.00")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("swapped limits should pass, got %+v", result)
	}
}

func TestPropagationRevalidatesOnlyDependents(t *testing.T) {
	endChecks := 0
	otherChecks := 0

	def := &formdef.Definition{
		Name: "range",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "start", MaxLength: 10}},
			{Attribute: field.AttributeSpec{Name: "end", MaxLength: 10}},
			{Attribute: field.AttributeSpec{Name: "unrelated", MaxLength: 10}},
		},
		CrossRules: []formdef.CrossRuleDef{
			{
				ID:         "start-before-end",
				Kind:       form.CrossKindCustom,
				Fields:     []string{"start", "end"},
				Dependents: []string{"end"},
			},
		},
	}

	session, err := form.NewSession(def,
		form.WithEvaluator("start-before-end", func(values map[string]string) error {
			if values["start"] != "" && values["end"] != "" && values["start"] > values["end"] {
				return errors.New("start must not be after end")
			}
			return nil
		}),
		form.WithFieldRules("end", field.Rule{Kind: field.RuleCustom, Predicate: func(string) error {
			endChecks++
			return nil
		}}),
		form.WithFieldRules("unrelated", field.Rule{Kind: field.RuleCustom, Predicate: func(string) error {
			otherChecks++
			return nil
		}}),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	ctx := context.Background()
	if _, _, err := session.SetValue(ctx, "end", "A"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	endChecks, otherChecks = 0, 0

	if _, _, err := session.SetValue(ctx, "start", "B"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	if endChecks != 1 {
		t.Fatalf("end was re-validated %d times, want 1", endChecks)
	}
	if otherChecks != 0 {
		t.Fatalf("unrelated field was re-validated %d times, want 0", otherChecks)
	}
}

func TestDependencyCycleRejectedAtConstruction(t *testing.T) {
	def := &formdef.Definition{
		Name: "cycle",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "x", MaxLength: 5}},
			{Attribute: field.AttributeSpec{Name: "y", MaxLength: 5}},
		},
		CrossRules: []formdef.CrossRuleDef{
			{ID: "a", Kind: form.CrossKindFieldsEqual, Fields: []string{"x"}, Dependents: []string{"y"}},
			{ID: "b", Kind: form.CrossKindFieldsEqual, Fields: []string{"y"}, Dependents: []string{"x"}},
		},
	}

	if _, err := form.NewSession(def); err == nil {
		t.Fatal("mutually dependent rules should be rejected at construction")
	}
}

func TestDependentsMayOverlapFields(t *testing.T) {
	def := &formdef.Definition{
		Name: "overlap",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "start", MaxLength: 5}},
			{Attribute: field.AttributeSpec{Name: "end", MaxLength: 5}},
		},
		CrossRules: []formdef.CrossRuleDef{
			{ID: "r", Kind: form.CrossKindFieldsEqual, Fields: []string{"start", "end"}, Dependents: []string{"end"}},
		},
	}

	if _, err := form.NewSession(def); err != nil {
		t.Fatalf("overlapping dependents should be legal, got %v", err)
	}
}

func TestSubmitFullSweep(t *testing.T) {
	def := &formdef.Definition{
		Name: "account",
		Fields: []formdef.FieldDef{
			{
				Attribute: field.AttributeSpec{Name: "accountId", MaxLength: 11, Mask: "9(11)", Required: true},
				Rules:     []formdef.RuleDef{{Kind: field.RuleRequired}, {Kind: field.RulePattern}},
			},
		},
	}
	session, err := form.NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	// Submit without ever touching the field: the sweep must catch the
	// missing required value even though no change event ran.
	result, err := session.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.IsValid {
		t.Fatal("empty required field should reject the submit")
	}
	if _, ok := result.FieldErrors["accountId"]; !ok {
		t.Fatalf("field errors = %+v, want accountId", result.FieldErrors)
	}

	if _, _, err := session.SetValue(ctx, "accountId", "12345678901"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	result, err = session.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("valid form should be accepted, got %+v", result)
	}
}

func TestPanickingRuleDegradesAndLogs(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	def := &formdef.Definition{
		Name: "panicky",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "a", MaxLength: 5}},
		},
		CrossRules: []formdef.CrossRuleDef{
			{ID: "boom", Kind: form.CrossKindCustom, Fields: []string{"a"}},
		},
	}
	session, err := form.NewSession(def,
		form.WithLogger(zap.New(core)),
		form.WithEvaluator("boom", func(map[string]string) error { panic("kaput") }),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	result, _, err := session.SetValue(context.Background(), "a", "v")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	if result.IsValid {
		t.Fatal("panicking rule should fail the form")
	}
	if len(result.CrossFieldErrors) != 1 {
		t.Fatalf("cross errors = %+v, want one", result.CrossFieldErrors)
	}
	got := result.CrossFieldErrors[0]
	if got.Message != "validation rule error" {
		t.Fatalf("message = %q, want the generic rule-error text", got.Message)
	}
	if got.Status != validate.StatusRuleError {
		t.Fatalf("status = %q, want %q", got.Status, validate.StatusRuleError)
	}
	if logs.FilterMessage("cross-field rule panicked").Len() != 1 {
		t.Fatal("panic was not logged")
	}
}

func TestSetValueRejectsProtectedFields(t *testing.T) {
	def := &formdef.Definition{
		Name: "protected",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "status", MaxLength: 2, Protection: field.ProtectionReadOnly}},
		},
	}
	session, err := form.NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	if _, _, err := session.SetValue(context.Background(), "status", "OK"); err == nil {
		t.Fatal("writing a read-only field should error")
	}
}

func TestCanonicalValues(t *testing.T) {
	session, err := form.NewSession(limitsDefinition())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, _, err := session.SetValue(ctx, "creditLimit", "+6,000.00"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	if _, _, err := session.SetValue(ctx, "cashLimit", "5000.00"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	canonical, err := session.Canonical()
	if err != nil {
		t.Fatalf("Canonical returned error: %v", err)
	}
	if canonical["creditLimit"] != "6000.00" {
		t.Fatalf("creditLimit canonical = %q, want 6000.00", canonical["creditLimit"])
	}
	if canonical["cashLimit"] != "5000.00" {
		t.Fatalf("cashLimit canonical = %q, want 5000.00", canonical["cashLimit"])
	}
}

func TestValidDateBuiltin(t *testing.T) {
	def := &formdef.Definition{
		Name: "dob",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "year", MaxLength: 4, Mask: "9(4)"}},
			{Attribute: field.AttributeSpec{Name: "month", MaxLength: 2}},
			{Attribute: field.AttributeSpec{Name: "day", MaxLength: 2}},
		},
		CrossRules: []formdef.CrossRuleDef{
			{ID: "real-date", Kind: form.CrossKindValidDate, Fields: []string{"year", "month", "day"}},
		},
	}
	session, err := form.NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	for name, value := range map[string]string{"year": "2025", "month": "2", "day": "30"} {
		if _, _, err := session.SetValue(ctx, name, value); err != nil {
			t.Fatalf("SetValue returned error: %v", err)
		}
	}
	if result := session.Result(); result.IsValid {
		t.Fatal("February 30 should fail the date rule")
	}

	if _, _, err := session.SetValue(ctx, "day", "28"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	if result := session.Result(); !result.IsValid {
		t.Fatalf("February 28 should pass, got %+v", result)
	}
}

func TestCrossRuleEvaluatesDisplayInput(t *testing.T) {
	session, err := form.NewSession(limitsDefinition())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	// Display-formatted entry is mask-valid; the rule must compare the
	// parsed amounts, not skip the check.
	if _, _, err := session.SetValue(ctx, "creditLimit", "5000.00"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	result, _, err := session.SetValue(ctx, "cashLimit", "+6,000.00")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	if result.IsValid {
		t.Fatal("display-formatted cash above credit should fail")
	}
	if len(result.CrossFieldErrors) != 1 {
		t.Fatalf("cross errors = %+v, want exactly one", result.CrossFieldErrors)
	}
	if got := result.CrossFieldErrors[0].Message; got != "cashLimit must not exceed creditLimit" {
		t.Fatalf("message = %q", got)
	}

	result, err = session.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.IsValid {
		t.Fatal("submit must re-detect the cross-field failure")
	}
}

func TestCrossRuleHeldWhileFieldInvalid(t *testing.T) {
	session, err := form.NewSession(limitsDefinition())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, _, err := session.SetValue(ctx, "creditLimit", "garbage"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	result, _, err := session.SetValue(ctx, "cashLimit", "6000.00")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	// The field error owns the failure; the cross rule waits for both
	// limits to be individually valid.
	if _, ok := result.FieldErrors["creditLimit"]; !ok {
		t.Fatalf("field errors = %+v, want creditLimit", result.FieldErrors)
	}
	if len(result.CrossFieldErrors) != 0 {
		t.Fatalf("cross errors = %+v, want none while the field is invalid", result.CrossFieldErrors)
	}

	result, _, err = session.SetValue(ctx, "creditLimit", "5000.00")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	if len(result.CrossFieldErrors) != 1 {
		t.Fatalf("cross errors = %+v, want the limit check once both parse", result.CrossFieldErrors)
	}
}

func TestUnreadableAmountIsRuleError(t *testing.T) {
	def := &formdef.Definition{
		Name: "freeform",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "amount", MaxLength: 10}},
			{Attribute: field.AttributeSpec{Name: "limit", MaxLength: 10}},
		},
		CrossRules: []formdef.CrossRuleDef{
			{ID: "within", Kind: form.CrossKindAmountNotAbove, Fields: []string{"amount", "limit"}},
		},
	}
	session, err := form.NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, _, err := session.SetValue(ctx, "limit", "5.00"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	result, _, err := session.SetValue(ctx, "amount", "abc")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	if result.IsValid {
		t.Fatal("unreadable amount should not pass the rule")
	}
	if len(result.CrossFieldErrors) != 1 {
		t.Fatalf("cross errors = %+v, want one", result.CrossFieldErrors)
	}
	got := result.CrossFieldErrors[0]
	if got.Status != validate.StatusRuleError || got.Message != "validation rule error" {
		t.Fatalf("cross error = %+v, want the generic rule error", got)
	}
}

func TestPatternRuleRequiresMask(t *testing.T) {
	def := &formdef.Definition{
		Name: "freeform",
		Fields: []formdef.FieldDef{
			{Attribute: field.AttributeSpec{Name: "note", MaxLength: 20}},
		},
	}

	_, err := form.NewSession(def,
		form.WithFieldRules("note", field.Rule{Kind: field.RulePattern}))
	if err == nil {
		t.Fatal("pattern rule on a maskless field should be rejected at construction")
	}
}

func TestCheckDoesNotCommit(t *testing.T) {
	session, err := form.NewSession(limitsDefinition(),
		form.WithAsyncRules(form.AsyncRule{
			ID:     "limit-approved",
			Fields: []string{"creditLimit"},
			Resolve: func(context.Context, map[string]string) error {
				return nil
			},
		}),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	_, checks, err := session.SetValue(ctx, "creditLimit", "5000.00")
	if err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	outcome, err := session.Check("creditLimit", "garbage")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if outcome.Valid {
		t.Fatal("garbage should fail the trial validation")
	}
	if outcome.Message == "" {
		t.Fatal("trial validation should carry the field's message")
	}

	if got := session.Value("creditLimit"); got != "5000.00" {
		t.Fatalf("value = %q, Check must not commit", got)
	}
	if result := session.Result(); !result.IsValid {
		t.Fatalf("result = %+v, Check must not record errors", result)
	}
	// The in-flight async check stays current; a trial validation is not
	// a change event.
	if _, err := checks[0].Await(ctx); err != nil {
		t.Fatalf("Await after Check returned error: %v", err)
	}

	if _, err := session.Check("ghost", "x"); err == nil {
		t.Fatal("unknown field should error")
	}
}
