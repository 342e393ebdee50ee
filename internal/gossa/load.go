// Package gossa adapts a golang.org/x/tools/go/ssa program to the
// call-graph program model.
package gossa

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

type Options struct {
	// Tests includes test packages and test functions.
	Tests bool
	// EntryPoint overrides the default roots with the functions of this
	// name (matched against both the short and the qualified name).
	EntryPoint string
	// Versions maps package paths to module versions.
	Versions map[string]string
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// Load type-checks patterns relative to dir and builds whole-program
// SSA with every generic instantiation materialized.
func Load(ctx context.Context, dir string, patterns []string, opts Options) (*Program, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     dir,
		Tests:   opts.Tests,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matched %v", patterns)
	}

	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", p.PkgPath, e.Msg))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("package errors: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	versions := make(map[string]string, len(opts.Versions))
	for k, v := range opts.Versions {
		versions[k] = v
	}
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if _, ok := versions[p.PkgPath]; ok {
			return
		}
		if p.Module != nil && p.Module.Version != "" {
			versions[p.PkgPath] = p.Module.Version
		}
	})
	opts.Versions = versions

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()
	return FromSSA(prog, ssaPkgs, opts), nil
}
