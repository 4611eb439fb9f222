// Package cli implements schemagen's command-line entry point.
package cli

import (
	"flag"
	"fmt"
	"io"

	"rollbacknet/tools/schemagen/internal/pipeline"
)

// Execute parses args and runs schemagen, writing diagnostics to stderr and
// a one-line success message to stdout.
func Execute(stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("schemagen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var target, out string
	fs.StringVar(&target, "target", "", "schema target: session-settings or relay-envelope")
	fs.StringVar(&out, "out", "", "path to write the JSON schema")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if target == "" {
		return fmt.Errorf("schemagen: --target is required")
	}
	if out == "" {
		return fmt.Errorf("schemagen: --out is required")
	}

	schema, err := pipeline.Build(pipeline.Target(target))
	if err != nil {
		return err
	}
	if err := pipeline.Write(out, schema); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "schemagen: wrote %s schema to %s\n", target, out)
	return nil
}
