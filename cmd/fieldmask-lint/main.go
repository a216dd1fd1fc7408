// Command fieldmask-lint validates form definition files: it compiles
// every picture mask, checks attribute invariants, and proves the
// cross-field dependency graph acyclic by constructing a session. With
// -interactive it then walks the form field by field, validating each
// answer with the engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"

	"github.com/goliatone/go-fieldmask/internal/formdef/openapi"
	"github.com/goliatone/go-fieldmask/internal/formdef/yamlloader"
	"github.com/goliatone/go-fieldmask/pkg/form"
	"github.com/goliatone/go-fieldmask/pkg/formdef"
	"github.com/goliatone/go-fieldmask/pkg/validate"
)

func main() {
	operation := flag.String("operation", "", "derive the form from this OpenAPI operation instead of a YAML definition")
	interactive := flag.Bool("interactive", false, "walk the form after linting")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: fieldmask-lint [-operation ID] [-interactive] <definition file>")
	}
	path := flag.Arg(0)
	ctx := context.Background()

	def, err := loadDefinition(ctx, path, *operation)
	if err != nil {
		log.Fatalf("lint failed: %v", err)
	}

	session, err := form.NewSession(def)
	if err != nil {
		log.Fatalf("lint failed: %v", err)
	}

	fmt.Printf("%s: %d fields, %d cross-field rules, ok\n",
		path, len(def.Fields), len(def.CrossRules))

	if *interactive {
		if err := walk(ctx, session); err != nil {
			log.Fatalf("walk failed: %v", err)
		}
	}
}

func loadDefinition(ctx context.Context, path, operation string) (*formdef.Definition, error) {
	if operation != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return openapi.Derive(ctx, raw, operation)
	}

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return yamlloader.New(os.DirFS(dir)).Load(ctx, name)
}

// walk prompts for each editable field, bridging survey validation to the
// engine so bad input re-prompts with the field's real error message.
func walk(ctx context.Context, session *form.Session) error {
	for _, name := range session.Fields() {
		attr, _ := session.Attribute(name)
		if !attr.Editable() {
			continue
		}

		message := name
		if attr.Mask != nil {
			message = fmt.Sprintf("%s (%s)", name, attr.Mask.Spec())
		}

		var answer string
		prompt := &survey.Input{
			Message: message,
			Default: attr.InitialValue,
		}
		err := survey.AskOne(prompt, &answer, survey.WithValidator(func(ans any) error {
			raw, _ := ans.(string)
			outcome, err := session.Check(name, raw)
			if err != nil {
				return err
			}
			if !outcome.Valid {
				return fmt.Errorf("%s", outcome.Message)
			}
			return nil
		}))
		if err != nil {
			return err
		}

		if _, _, err := session.SetValue(ctx, name, answer); err != nil {
			return err
		}
	}

	result, err := session.Submit(ctx)
	if err != nil {
		return err
	}
	report(result)
	return nil
}

func report(result validate.Result) {
	if result.IsValid {
		fmt.Println("form accepted")
		return
	}
	fmt.Println("form rejected:")
	for name, message := range result.FieldErrors {
		fmt.Printf("  %s: %s\n", name, message)
	}
	for _, cross := range result.CrossFieldErrors {
		fmt.Printf("  [%s] %s\n", cross.RuleID, cross.Message)
	}
}
