package fieldmask_test

import (
	"context"
	"testing"
	"testing/fstest"

	fieldmask "github.com/goliatone/go-fieldmask"
)

const transferForm = `
name: transfer
fields:
  - name: accountId
    maxLength: 11
    mask: "9(11)"
    required: true
    rules:
      - kind: required
      - kind: pattern
  - name: amount
    maxLength: 15
    mask: "+ZZZ,ZZZ,ZZZ.99"
    rules:
      - kind: pattern
  - name: limit
    maxLength: 15
    mask: "+ZZZ,ZZZ,ZZZ.99"
    rules:
      - kind: pattern
crossRules:
  - id: amount-within-limit
    kind: amountNotAbove
    fields: [amount, limit]
    dependents: [amount]
`

func transferFS() fstest.MapFS {
	return fstest.MapFS{
		"forms/transfer.yaml": &fstest.MapFile{Data: []byte(transferForm)},
	}
}

func TestValidateAcceptsGoodValues(t *testing.T) {
	result, err := fieldmask.Validate(context.Background(), transferFS(), "forms/transfer.yaml", map[string]string{
		"accountId": "00000012345",
		"amount":    "250.00",
		"limit":     "1,000.00",
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("result = %+v, want valid", result)
	}
}

func TestValidateReportsFieldAndCrossErrors(t *testing.T) {
	result, err := fieldmask.Validate(context.Background(), transferFS(), "forms/transfer.yaml", map[string]string{
		"accountId": "12345",
		"amount":    "2,000.00",
		"limit":     "1,000.00",
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if result.IsValid {
		t.Fatal("result valid, want invalid")
	}
	if result.FieldErrors["accountId"] == "" {
		t.Fatalf("field errors = %+v, want accountId entry", result.FieldErrors)
	}
	if len(result.CrossFieldErrors) != 1 || result.CrossFieldErrors[0].RuleID != "amount-within-limit" {
		t.Fatalf("cross errors = %+v", result.CrossFieldErrors)
	}
}

func TestNewSessionFromLoadedDefinition(t *testing.T) {
	ctx := context.Background()
	def, err := fieldmask.LoadYAML(ctx, transferFS(), "forms/transfer.yaml")
	if err != nil {
		t.Fatalf("LoadYAML returned error: %v", err)
	}
	session, err := fieldmask.NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if got := session.Fields(); len(got) != 3 {
		t.Fatalf("fields = %v", got)
	}
}
