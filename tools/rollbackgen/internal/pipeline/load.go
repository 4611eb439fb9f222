package pipeline

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/packages"
)

// LoadConstants loads the Go package at dir and returns the names of every
// constant declared with the given named type, in sorted order, along with
// the package's own name (used as the generated file's package clause).
func LoadConstants(dir, typeName string) (names []string, pkgName string, err error) {
	pkg, err := loadPackage(dir)
	if err != nil {
		return nil, "", err
	}

	for _, file := range pkg.Syntax {
		ast.Inspect(file, func(n ast.Node) bool {
			decl, ok := n.(*ast.GenDecl)
			if !ok || decl.Tok != token.CONST {
				return true
			}
			for _, spec := range decl.Specs {
				valueSpec, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, ident := range valueSpec.Names {
					obj := pkg.TypesInfo.ObjectOf(ident)
					if obj == nil {
						continue
					}
					named, ok := obj.Type().(*types.Named)
					if !ok || named.Obj().Name() != typeName {
						continue
					}
					names = append(names, ident.Name)
				}
			}
			return true
		})
	}

	if len(names) == 0 {
		return nil, "", fmt.Errorf("rollbackgen: no constants of type %s found in %s", typeName, dir)
	}
	sort.Strings(names)
	return names, pkg.Name, nil
}

func loadPackage(dir string) (*packages.Package, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("rollbackgen: unable to resolve package directory: %w", err)
	}

	modRoot, err := findModuleRoot(absDir)
	if err != nil {
		return nil, err
	}

	relPath, err := filepath.Rel(modRoot, absDir)
	if err != nil {
		return nil, fmt.Errorf("rollbackgen: failed computing package path: %w", err)
	}

	pattern := "./" + filepath.ToSlash(relPath)
	cfg := &packages.Config{
		Dir:  modRoot,
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax | packages.NeedFiles | packages.NeedModule | packages.NeedDeps,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("rollbackgen: failed loading package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("rollbackgen: package load returned no results for %s", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("rollbackgen: expected a single package for %s, got %d", pattern, len(pkgs))
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("rollbackgen: package load reported errors: %v", pkg.Errors[0])
	}

	return pkg, nil
}

// findModuleRoot walks upward from start looking for the nearest go.mod,
// so the generator can be pointed at a package directory that belongs to a
// different module than rollbackgen's own.
func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("rollbackgen: failed probing %s: %w", dir, err)
		}

		next := filepath.Dir(dir)
		if next == dir {
			return "", fmt.Errorf("rollbackgen: unable to locate go.mod for %s", start)
		}
		dir = next
	}
}
