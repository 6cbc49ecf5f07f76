package app

import (
	"github.com/spf13/cobra"

	"github.com/opal-lang/formeval/runtime/orchestrator"
)

func newEvalCommand() *cobra.Command {
	var dataPath, ctxPath string
	var resolveLayout bool

	cmd := &cobra.Command{
		Use:   "eval <schema.json>",
		Short: "Fully evaluate a schema against a data document",
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
			return printValue(eng.GetEvaluatedSchema(resolveLayout))
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Path to the initial data JSON document")
	cmd.Flags().StringVar(&ctxPath, "context", "", "Path to the context JSON document")
	cmd.Flags().BoolVar(&resolveLayout, "resolve-layout", false, "Expand layout $refs and propagate condition flags")
	return cmd
}
