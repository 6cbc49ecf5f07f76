package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/data"
	"github.com/opal-lang/formeval/runtime/eval"
)

func newCompileCommand() *cobra.Command {
	var dataPath, ctxPath string
	var run bool

	cmd := &cobra.Command{
		Use:   "compile <logic.json>",
		Short: "Compile a single JSON-Logic expression document, optionally running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logicDoc, err := loadValue(args[0])
			if err != nil {
				return err
			}

			id, compiled, err := sharedStore.Compile(logicDoc)
			if err != nil {
				return err
			}
			if !run {
				fmt.Println(uint64(id))
				return nil
			}

			d, err := loadValue(dataPath)
			if err != nil {
				return err
			}
			ctx, err := loadValue(ctxPath)
			if err != nil {
				return err
			}
			root := d
			if !ctx.IsNull() {
				obj := value.NewObject()
				if rootObj, ok := root.AsObject(); ok {
					for _, k := range rootObj.Keys() {
						v, _ := rootObj.Get(k)
						obj.Set(k, v)
					}
				}
				obj.Set("$context", ctx)
				root = value.Obj(obj)
			}

			reducer := eval.New(eval.DefaultConfig())
			env := eval.NewEnv(data.New(root))
			result, err := reducer.Eval(compiled, env)
			if err != nil {
				return err
			}
			return printValue(result)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Path to the data JSON document (with --run)")
	cmd.Flags().StringVar(&ctxPath, "context", "", "Path to the context JSON document (with --run)")
	cmd.Flags().BoolVar(&run, "run", false, "Evaluate the compiled expression immediately instead of just printing its id")
	return cmd
}
