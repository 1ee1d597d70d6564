package dom

import "errors"

var (
	// ErrIllegalConstructor is returned by Construct for definitions that
	// are not registered.
	ErrIllegalConstructor = errors.New("dom: illegal constructor")

	// ErrNotSupported is returned by AttachShadow when a root exists.
	ErrNotSupported = errors.New("dom: operation not supported")

	// ErrInvalidName is returned by Define for invalid names.
	ErrInvalidName = errors.New("dom: invalid custom element name")

	// ErrAlreadyDefined is returned by Define for duplicate names or
	// definitions.
	ErrAlreadyDefined = errors.New("dom: custom element already defined")

	ErrHierarchy     = errors.New("dom: hierarchy request error")
	ErrNotFound      = errors.New("dom: node not found")
	ErrWrongDocument = errors.New("dom: node belongs to another document")
	ErrReadOnly      = errors.New("dom: property is read-only")

	// ErrNoElement is returned when markup parses to no element.
	ErrNoElement = errors.New("dom: markup contains no element")
)
