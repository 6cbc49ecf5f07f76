// Command formeval is the CLI entrypoint: eval/validate/compile/watch and
// cache introspection over a JSON-Logic-dialect form schema.
package main

import (
	"os"

	"github.com/opal-lang/formeval/cli/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
