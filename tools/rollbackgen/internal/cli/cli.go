package cli

import (
	"flag"
	"fmt"
	"io"

	"rollbacknet/tools/rollbackgen/internal/pipeline"
)

// Execute parses args and runs the generator, writing progress to stdout
// and errors to stderr.
func Execute(stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("rollbackgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dir, typeName, out string
	fs.StringVar(&dir, "dir", "", "directory of the package to scan (required)")
	fs.StringVar(&typeName, "type", "", "name of the string-backed const type to generate String() for (required)")
	fs.StringVar(&out, "out", "", "path to write the generated file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if dir == "" {
		return fmt.Errorf("rollbackgen: --dir is required")
	}
	if typeName == "" {
		return fmt.Errorf("rollbackgen: --type is required")
	}
	if out == "" {
		return fmt.Errorf("rollbackgen: --out is required")
	}

	names, pkgName, err := pipeline.LoadConstants(dir, typeName)
	if err != nil {
		return err
	}

	src, err := pipeline.Render(pkgName, typeName, names)
	if err != nil {
		return err
	}

	if err := pipeline.WriteFile(out, src); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "rollbackgen: wrote %s (%d values of %s)\n", out, len(names), typeName)
	return nil
}
