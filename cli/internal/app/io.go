package app

import (
	"fmt"
	"os"

	"github.com/opal-lang/formeval/core/value"
)

// loadValue reads path and decodes it as a value.Value document. An empty
// path returns value.Null(), for the common case of an optional
// --context/--data flag.
func loadValue(path string) (value.Value, error) {
	if path == "" {
		return value.Null(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return value.Null(), fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := value.FromJSON(raw)
	if err != nil {
		return value.Null(), fmt.Errorf("parsing %s as JSON: %w", path, err)
	}
	return v, nil
}

func printValue(v value.Value) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
