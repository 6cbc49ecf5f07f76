package app

import (
	"github.com/spf13/cobra"

	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/orchestrator"
)

func newValidateCommand() *cobra.Command {
	var dataPath, ctxPath string
	var fields []string

	cmd := &cobra.Command{
		Use:   "validate <schema.json>",
		Short: "Evaluate then run validation rules, reporting every failure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaDoc, err := loadValue(args[0])
			if err != nil {
				return err
			}
			data, err := loadValue(dataPath)
			if err != nil {
				return err
			}
			ctx, err := loadValue(ctxPath)
			if err != nil {
				return err
			}

			eng, err := orchestrator.New(schemaDoc, sharedStore, ctx, data, orchestrator.DefaultConfig())
			if err != nil {
				return err
			}
			if err := eng.Evaluate(data, ctx, nil); err != nil {
				return err
			}
			result := eng.Validate(fields)
			return printValue(validationResultToValue(result))
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Path to the initial data JSON document")
	cmd.Flags().StringVar(&ctxPath, "context", "", "Path to the context JSON document")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "Restrict validation to these schema paths (default: every rule)")
	return cmd
}

func validationResultToValue(r *orchestrator.ValidationResult) value.Value {
	out := value.NewObject()
	out.Set("hasError", value.FromAny(r.HasError))

	errs := value.NewObject()
	for field, fieldErrs := range r.Errors {
		arr := make([]value.Value, len(fieldErrs))
		for i, ve := range fieldErrs {
			obj := value.NewObject()
			obj.Set("type", value.FromAny(ve.Type))
			obj.Set("code", value.FromAny(ve.Code))
			if ve.Message != "" {
				obj.Set("message", value.FromAny(ve.Message))
			}
			if ve.Pattern != "" {
				obj.Set("pattern", value.FromAny(ve.Pattern))
			}
			obj.Set("fieldValue", ve.FieldValue)
			arr[i] = value.Obj(obj)
		}
		errs.Set(field, value.ArrayFrom(arr))
	}
	out.Set("errors", value.Obj(errs))
	return value.Obj(out)
}
