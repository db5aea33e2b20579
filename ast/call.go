package ast

import (
	"fmt"
	"sync"

	"github.com/jndean/Railway/concurrency"
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
)

// Function is §3's Function: name, parameter triples, and a body. The
// declared parameter/return lists are ordered and matched positionally
// by the call dispatcher rather than by name, since names belong to
// the callee alone and a call site's own variable names need not
// match them (§4.6).
type Function struct {
	Name           string
	BorrowedParams []string
	InParams       []string
	OutParams      []string
	Lines          []Stmt
}

// threadContext carries the ambient parallel-execution state a child
// scope should inherit (or, for a freshly spawned parallel worker,
// the fresh context invokeParallel assigns it). A nil threadContext
// means "inherit from the caller scope", which is how a plain
// (non-parallel) nested call running inside a worker keeps seeing
// that worker's thread_id/num_threads/Coordinator (§4.4, §4.7).
type threadContext struct {
	Coordinator *concurrency.Coordinator
	Index       int
	Count       int
}

// Invoke runs f's body once, in the given direction, against stolen
// and borrowed arguments supplied positionally (§4.6). On return the
// child scope's locals must hold exactly the function's declared
// return set (the opposite parameter list from the one direction
// selected as input); a missing return or any other local is a
// leaked-information error. Mono variables left in the child scope are
// not checked.
func (f *Function) Invoke(caller *scope.Scope, override *threadContext, backwards bool, stolen, borrowed []*scope.Variable) ([]*value.Cell, error) {
	coordinator := caller.Coordinator
	threadIdx := caller.ThreadIndex
	threadCount := caller.ThreadCount
	if override != nil {
		coordinator = override.Coordinator
		threadIdx = override.Index
		threadCount = override.Count
	}
	diagThread := 0
	if coordinator != nil {
		diagThread = threadIdx
	}

	child := scope.New(f.Name, diagThread, caller.Globals, caller)
	child.Coordinator = coordinator
	child.ThreadIndex = threadIdx
	child.ThreadCount = threadCount

	paramNames, returnNames := f.InParams, f.OutParams
	if backwards {
		paramNames, returnNames = f.OutParams, f.InParams
	}

	if len(stolen) != len(paramNames) {
		return nil, railerr.New(railerr.CallError, child.Trace(), "function %q: expected %d stolen argument(s), got %d", f.Name, len(paramNames), len(stolen))
	}
	if len(borrowed) != len(f.BorrowedParams) {
		return nil, railerr.New(railerr.CallError, child.Trace(), "function %q: expected %d borrowed argument(s), got %d", f.Name, len(f.BorrowedParams), len(borrowed))
	}

	for i, name := range paramNames {
		v := stolen[i]
		if v.Borrowed {
			return nil, railerr.New(railerr.ReferenceOwnership, child.Trace(), "cannot steal a borrowed value into parameter %q", name)
		}
		if v.IsMono != scope.IsMonoName(name) {
			return nil, railerr.New(railerr.IllegalMono, child.Trace(), "mono/non-mono mismatch binding parameter %q", name)
		}
		if err := child.Assign(name, v); err != nil {
			return nil, err
		}
	}
	for i, name := range f.BorrowedParams {
		v := borrowed[i]
		alias := &scope.Variable{Mem: v.Mem, IsMono: v.IsMono, Borrowed: true}
		if err := child.Assign(name, alias); err != nil {
			return nil, err
		}
	}

	if _, err := RunLines(f.Lines, child, backwards); err != nil {
		return nil, err
	}

	results := make([]*value.Cell, len(returnNames))
	for i, name := range returnNames {
		v, err := child.Remove(name)
		if err != nil {
			return nil, railerr.New(railerr.LeakedInformation, child.Trace(), "function %q did not produce declared return %q", f.Name, name)
		}
		if v.Borrowed {
			return nil, railerr.New(railerr.ReferenceOwnership, child.Trace(), "cannot return borrowed variable %q", name)
		}
		results[i] = v.Mem
	}
	if leaked := child.LocalNames(); len(leaked) > 0 {
		return nil, railerr.New(railerr.LeakedInformation, child.Trace(), "function %q leaked local variable(s) %v", f.Name, leaked)
	}
	return results, nil
}

// CallBlock is one link of a Call chain: a single (possibly parallel)
// invocation of a named function, forwards (`call`) or backwards
// (`uncall`) (§4.6).
type CallBlock struct {
	FunctionName   string
	Funcs          map[string]*Function
	Uncall         bool
	BorrowedParams []string
	NumThreads     Expr // nil for a non-parallel call
}

// Call implements §4.6's call chain: steal InParams from the caller,
// run every CallBlock in sequence (each one's output becomes the
// next's stolen input), then bind the final results to OutParams.
// Like a plain function call, Call itself never flips the direction
// of the sequence it sits in; each CallBlock's own direction is
// `uncall XOR outer-backward`.
type Call struct {
	InParams  []string
	Blocks    []*CallBlock
	OutParams []string
}

func (c *Call) Eval(s *scope.Scope, backwards bool) (bool, error) {
	stolen := make([]*scope.Variable, len(c.InParams))
	for i, name := range c.InParams {
		v, err := s.Remove(name)
		if err != nil {
			return backwards, err
		}
		stolen[i] = v
	}

	for _, block := range c.Blocks {
		fn, ok := block.Funcs[block.FunctionName]
		if !ok {
			return backwards, railerr.New(railerr.UndefinedFunction, s.Trace(), "undefined function %q", block.FunctionName)
		}
		dir := block.Uncall != backwards

		borrowed := make([]*scope.Variable, len(block.BorrowedParams))
		for i, name := range block.BorrowedParams {
			v, err := s.Lookup(name)
			if err != nil {
				return backwards, err
			}
			borrowed[i] = v
		}

		var (
			results []*value.Cell
			err     error
		)
		if block.NumThreads != nil {
			results, err = invokeParallel(s, fn, block, dir, stolen, borrowed)
		} else {
			results, err = fn.Invoke(s, nil, dir, stolen, borrowed)
		}
		if err != nil {
			return backwards, err
		}

		returnNames := fn.OutParams
		if dir {
			returnNames = fn.InParams
		}
		next := make([]*scope.Variable, len(results))
		for i, cell := range results {
			next[i] = &scope.Variable{Mem: cell, IsMono: scope.IsMonoName(returnNames[i])}
		}
		stolen = next
	}

	if len(stolen) != len(c.OutParams) {
		return backwards, railerr.New(railerr.CallError, s.Trace(), "call chain produced %d result(s), expected %d out-param(s)", len(stolen), len(c.OutParams))
	}
	for i, name := range c.OutParams {
		if err := s.Assign(name, stolen[i]); err != nil {
			return backwards, err
		}
	}
	return backwards, nil
}

// invokeParallel implements §4.7: evaluate num_threads, split each
// stolen argument across that many workers, share borrowed arguments,
// and run the callee on real goroutines under a fresh Coordinator.
func invokeParallel(caller *scope.Scope, fn *Function, block *CallBlock, dir bool, stolen, borrowed []*scope.Variable) ([]*value.Cell, error) {
	nCell, err := block.NumThreads.Eval(caller)
	if err != nil {
		return nil, err
	}
	nNum, err := asNumber(caller, nCell)
	if err != nil {
		return nil, err
	}
	nInt, ok := nNum.Int64()
	if !ok || nInt <= 0 {
		return nil, railerr.New(railerr.ValueError, caller.Trace(), "num_threads must be a positive integer")
	}
	n := int(nInt)

	perThread := make([][]*scope.Variable, n)
	for i := range perThread {
		perThread[i] = make([]*scope.Variable, len(stolen))
	}
	for pi, v := range stolen {
		if !v.Mem.IsArray() || v.Mem.Len() != n {
			return nil, railerr.New(railerr.ValueError, caller.Trace(), "stolen parameter %d must be an array of length %d (num_threads)", pi, n)
		}
		for ti := 0; ti < n; ti++ {
			perThread[ti][pi] = &scope.Variable{Mem: v.Mem.Elems()[ti], IsMono: v.IsMono}
		}
	}

	coordinator := concurrency.NewCoordinator(n)
	var wg sync.WaitGroup
	resultsPerThread := make([][]*value.Cell, n)
	errs := make([]error, n)
	for ti := 0; ti < n; ti++ {
		wg.Add(1)
		go func(ti int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicErr := fmt.Errorf("thread %d panicked: %v", ti, r)
					errs[ti] = panicErr
					coordinator.Abort(panicErr)
				}
			}()
			res, err := fn.Invoke(caller, &threadContext{Coordinator: coordinator, Index: ti, Count: n}, dir, perThread[ti], borrowed)
			if err != nil {
				errs[ti] = err
				coordinator.Abort(err)
				return
			}
			resultsPerThread[ti] = res
		}(ti)
	}
	wg.Wait()

	for _, e := range errs {
		if e == nil {
			continue
		}
		if railErr, ok := e.(*railerr.Error); ok && railErr.Kind == railerr.Sympathetic {
			continue
		}
		return nil, e
	}

	numOut := len(fn.OutParams)
	if dir {
		numOut = len(fn.InParams)
	}
	results := make([]*value.Cell, numOut)
	for oi := 0; oi < numOut; oi++ {
		elems := make([]*value.Cell, n)
		for ti := 0; ti < n; ti++ {
			if resultsPerThread[ti] == nil {
				elems[ti] = value.NewNumber(value.Zero)
				continue
			}
			elems[ti] = resultsPerThread[ti][oi]
		}
		results[oi] = value.NewArray(elems)
	}
	return results, nil
}
