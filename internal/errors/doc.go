// Package errors provides structured, actionable error messages for the
// bore CLI and server.
//
// Every error carries a code (e.g. "B001") that maps to a short message, a
// longer explanation and a documentation URL. Config and fixture errors
// may also carry a source location with surrounding lines.
//
// # Error Categories
//
//   - query: selector, XPath and expression errors
//   - mount: markup and fixture problems
//   - wait: timeouts, cancellation and panicking predicates
//   - config: bore.json / bore.yaml loading and validation
//   - source: loading fixture markup from files, URLs and S3
//   - cli: command line usage
//
// # Usage
//
//	err := errors.New("B030").
//	    WithLocation("bore.yaml", 4, 8).
//	    WithSuggestion("delay must be a Go duration such as 5ms")
//
//	fmt.Println(err.Format())
//
// Errors from the bore packages are mapped to codes with FromError:
//
//	if _, err := w.All(q); err != nil {
//	    errors.PrintError(errors.FromError(err))
//	}
package errors
