// Package module implements §4.8/§8.2's module loader: global-init
// execution, import resolution with alias-prefixed symbol merging, and
// entry-point dispatch. Lexing, parsing, and argv decoding are external
// collaborators (§1) — Load consumes an already-built *ast.Module and
// an already-decoded argv value.Cell.
package module

import (
	"github.com/jndean/Railway/ast"
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
)

// Importer loads the module found at path. Supplied by the caller
// (the driver that also owns the filesystem) since file loading is
// out of scope here (§1, §4.8).
type Importer func(path string) (*ast.Module, error)

// Load runs mod: resolves and merges its imports, executes its global
// initialisers in order, then invokes its entry point (`main`,
// falling back to `.main`) forward with argv as its sole stolen
// input and no borrowed arguments.
func Load(mod *ast.Module, argv *value.Cell, importFn Importer) error {
	globals := scope.NewGlobals()
	visited := map[string]bool{}
	if err := resolveImports(mod, globals, importFn, visited); err != nil {
		return err
	}
	if err := runGlobalInits(mod, globals); err != nil {
		return err
	}

	mainFn, ok := mod.Functions["main"]
	if !ok {
		mainFn, ok = mod.Functions[".main"]
	}
	if !ok {
		return railerr.New(railerr.UndefinedFunction, nil, "module %q declares no main entry point", mod.Name)
	}

	root := scope.New(mod.Name, 0, globals, nil)
	stolen := []*scope.Variable{{Mem: argv}}
	if _, err := mainFn.Invoke(root, nil, false, stolen, nil); err != nil {
		return err
	}
	return nil
}

// resolveImports recursively loads mod's imports, merging each one's
// globals and functions into globals/mod.Functions under its alias
// prefix (§4.8). visited guards against import cycles along the
// current DFS path; it does not forbid the same module being imported
// by two unrelated siblings (a diamond), only a module importing
// itself transitively.
func resolveImports(mod *ast.Module, globals *scope.Globals, importFn Importer, visited map[string]bool) error {
	for _, imp := range mod.Imports {
		if visited[imp.Path] {
			return railerr.New(railerr.ImportError, nil, "import cycle detected at %q", imp.Path)
		}
		if importFn == nil {
			return railerr.New(railerr.ImportError, nil, "module %q imports %q but no importer was supplied", mod.Name, imp.Path)
		}
		sub, err := importFn(imp.Path)
		if err != nil {
			return railerr.New(railerr.ImportError, nil, "failed to load %q: %v", imp.Path, err)
		}

		visited[imp.Path] = true
		subGlobals := scope.NewGlobals()
		if err := resolveImports(sub, subGlobals, importFn, visited); err != nil {
			return err
		}
		if err := runGlobalInits(sub, subGlobals); err != nil {
			return err
		}
		delete(visited, imp.Path)

		prefix := imp.Alias
		if prefix != "" {
			prefix += "."
		}
		for name, v := range subGlobals.All() {
			if err := globals.Define(prefix+name, v); err != nil {
				return err
			}
		}
		if mod.Functions == nil {
			mod.Functions = make(map[string]*ast.Function)
		}
		for name, fn := range sub.Functions {
			qualified := prefix + name
			if _, exists := mod.Functions[qualified]; exists {
				return railerr.New(railerr.NameClash, nil, "function %q already defined when merging import %q", qualified, imp.Path)
			}
			mod.Functions[qualified] = fn
		}
	}
	return nil
}

// runGlobalInits runs each GlobalInit forward in order, in a scope
// sharing globals (so later initialisers may read earlier globals),
// and installs the resulting variable. Anything else left in that
// scope at the end is a leaked-information error, the same rule
// Function.Invoke applies at the end of a call (§4.5).
func runGlobalInits(mod *ast.Module, globals *scope.Globals) error {
	for _, gi := range mod.Globals {
		s := scope.New(mod.Name, 0, globals, nil)
		if _, err := ast.RunLines(gi.Lines, s, false); err != nil {
			return err
		}
		v, err := s.Remove(gi.Name)
		if err != nil {
			return railerr.New(railerr.LeakedInformation, s.Trace(), "global %q was not produced by its initialiser", gi.Name)
		}
		if err := globals.Define(gi.Name, v); err != nil {
			return err
		}
		if leaked := s.LocalNames(); len(leaked) > 0 {
			return railerr.New(railerr.LeakedInformation, s.Trace(), "global initialiser for %q leaked variable(s) %v", gi.Name, leaked)
		}
	}
	return nil
}
