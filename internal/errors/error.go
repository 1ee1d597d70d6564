package errors

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/vango-dev/bore/pkg/bore"
	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/loop"
)

// Category represents the type of error.
type Category string

const (
	CategoryQuery  Category = "query"
	CategoryMount  Category = "mount"
	CategoryWait   Category = "wait"
	CategoryConfig Category = "config"
	CategorySource Category = "source"
	CategoryCLI    Category = "cli"
)

// Location represents a position in a config or fixture file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// BoreError is a structured error with a code, optional location,
// suggestions and documentation.
type BoreError struct {
	// Code is a unique error identifier (e.g., "B001").
	Code string

	// Category is the error type (query, mount, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position the error refers to.
	Location *Location

	// Context contains the lines around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct usage.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BoreError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BoreError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position and the lines around it.
func (e *BoreError) WithLocation(file string, line, column int) *BoreError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, contextSize)
	return e
}

// WithOffset adds the position of a byte offset into data, as reported by
// encoding/json syntax errors.
func (e *BoreError) WithOffset(file string, data []byte, offset int64) *BoreError {
	line, col := 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return e.WithLocation(file, line, col)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BoreError) WithSuggestion(s string) *BoreError {
	e.Suggestion = s
	return e
}

// WithExample adds a usage example to the error.
func (e *BoreError) WithExample(ex string) *BoreError {
	e.Example = ex
	return e
}

// WithDetail replaces the detailed explanation.
func (e *BoreError) WithDetail(d string) *BoreError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *BoreError) Wrap(err error) *BoreError {
	e.Wrapped = err
	return e
}

// contextSize is the number of lines shown around a location.
const contextSize = 5

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a BoreError from a registered error code.
func New(code string) *BoreError {
	template, ok := registry[code]
	if !ok {
		return &BoreError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &BoreError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new BoreError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BoreError {
	return &BoreError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// sentinels maps errors from the bore packages to codes, checked in order.
var sentinels = []struct {
	target error
	code   string
}{
	{bore.ErrInvalidSelector, "B001"},
	{bore.ErrUnsupportedQuery, "B002"},
	{bore.ErrInvalidXPath, "B003"},
	{bore.ErrInvalidExpr, "B004"},
	{bore.ErrNoElement, "B010"},
	{bore.ErrUnsupportedMount, "B011"},
	{bore.ErrClosed, "B012"},
	{dom.ErrWrongDocument, "B013"},
	{dom.ErrInvalidName, "B014"},
	{dom.ErrAlreadyDefined, "B015"},
	{bore.ErrWaitTimeout, "B020"},
	{context.DeadlineExceeded, "B022"},
	{context.Canceled, "B022"},
	{loop.ErrReentrant, "B023"},
}

// FromError converts err into a BoreError. A BoreError anywhere in the
// chain is returned as is; known sentinels get their code; anything else
// becomes B099.
func FromError(err error) *BoreError {
	if err == nil {
		return nil
	}
	var be *BoreError
	if stderrors.As(err, &be) {
		return be
	}
	var pe *loop.PanicError
	if stderrors.As(err, &pe) {
		return New("B021").Wrap(err)
	}
	for _, s := range sentinels {
		if stderrors.Is(err, s.target) {
			return New(s.code).Wrap(err)
		}
	}
	return New("B099").Wrap(err)
}

// Wrap wraps err with the given code unless it already is a BoreError.
func Wrap(err error, code string) *BoreError {
	if err == nil {
		return nil
	}
	var be *BoreError
	if stderrors.As(err, &be) {
		return be
	}
	return New(code).Wrap(err)
}
