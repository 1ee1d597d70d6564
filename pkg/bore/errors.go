package bore

import (
	"errors"

	"github.com/vango-dev/bore/pkg/dom"
)

var (
	// ErrInvalidSelector is returned for selectors cascadia cannot parse.
	ErrInvalidSelector = errors.New("bore: invalid selector")

	// ErrUnsupportedQuery is returned for values From cannot classify.
	ErrUnsupportedQuery = errors.New("bore: unsupported query")

	// ErrInvalidXPath is returned for XPath expressions that do not compile.
	ErrInvalidXPath = errors.New("bore: invalid xpath")

	// ErrInvalidExpr is returned for expressions that do not compile or do
	// not evaluate to a bool.
	ErrInvalidExpr = errors.New("bore: invalid expression")

	// ErrNoElement is returned when mounted markup holds no element.
	ErrNoElement = dom.ErrNoElement

	// ErrUnsupportedMount is returned for values Mount cannot attach.
	ErrUnsupportedMount = errors.New("bore: cannot mount value")

	// ErrWaitTimeout is returned when a wait outlives WithTimeout.
	ErrWaitTimeout = errors.New("bore: wait timed out")

	// ErrClosed is returned by Mount after Close.
	ErrClosed = errors.New("bore: arena closed")
)
