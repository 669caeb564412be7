package hush

import "errors"

// Check parses and resolves source without running it, returning every
// diagnostic found.
func Check(source, filename string) Diagnostics {
	_, err := CompileStandalone(source, filename)
	return AsDiagnostics(err)
}

// CompileStandalone parses and resolves source in a fresh top-level scope.
func CompileStandalone(source, filename string) (*Program, error) {
	prog, err := Parse(source, filename)
	if err != nil {
		return nil, err
	}
	if err := NewResolver(globalNames).Resolve(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// AsDiagnostics extracts the static errors carried by err, if any.
func AsDiagnostics(err error) Diagnostics {
	var ds Diagnostics
	if errors.As(err, &ds) {
		return ds
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return Diagnostics{d}
	}
	return nil
}

// Execute compiles and runs source on e.
func (e *Evaluator) Execute(source, filename string) (Value, error) {
	prog, err := e.Compile(source, filename)
	if err != nil {
		return nil, err
	}
	return e.Run(prog)
}
