// Package errs provides the error category taxonomy shared across the
// configuration agent. This is a leaf package with no internal dependencies,
// designed to be imported by every other internal package without causing
// import cycles.
package errs

import "fmt"

// Category classifies an Error into one of the wire-visible error tags.
type Category int

const (
	// Cfg indicates a configuration-loading or option error.
	Cfg Category = iota + 1

	// Unix indicates a transport/fd-level error (socket, pipe, file).
	Unix

	// DB indicates a datastore semantic error (create-of-existing,
	// delete-of-absent, malformed top-level element).
	DB

	// XML indicates a tree-identity or serialization error.
	XML

	// Yang indicates a schema-oracle error (missing statement, type
	// mismatch).
	Yang

	// Plugin indicates a plugin load or ABI-validation error.
	Plugin

	// Auth indicates a session failed the plugin auth chain.
	Auth

	// Proto indicates a frame-decoding error (short header, oversize
	// body, malformed length).
	Proto

	// Netconf indicates an RFC 6241 semantic error surfaced to a
	// requester.
	Netconf

	// Events indicates an event-loop error (poll failure, signal
	// handling).
	Events

	// Fatal indicates a programmer/invariant violation; the process
	// should exit.
	Fatal
)

// String returns the wire tag for the category.
func (c Category) String() string {
	switch c {
	case Cfg:
		return "cfg"
	case Unix:
		return "unix"
	case DB:
		return "db"
	case XML:
		return "xml"
	case Yang:
		return "yang"
	case Plugin:
		return "plugin"
	case Auth:
		return "auth"
	case Proto:
		return "proto"
	case Netconf:
		return "netconf"
	case Events:
		return "events"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Error is the sum-typed error carried across the core: a category, an
// optional errno, a message, and an optional structured diagnostic for
// NETCONF replies. XML is declared as `any` here and type-asserted by
// callers that import xmltree, avoiding an errs -> xmltree import cycle
// (xmltree nodes themselves surface errs.Error on malformed trees).
type Error struct {
	Category Category
	Errno    int
	Message  string
	Path     string
	XML      any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Category, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// New builds an Error of the given category with a formatted message.
func New(cat Category, format string, args ...any) *Error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// Newf is an alias of New kept for call sites that read better with the
// "f" suffix next to fmt.Errorf.
func Newf(cat Category, format string, args ...any) *Error {
	return New(cat, format, args...)
}

// WithPath attaches a path to an Error and returns it for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithErrno attaches an errno to an Error and returns it for chaining.
func (e *Error) WithErrno(errno int) *Error {
	e.Errno = errno
	return e
}

// Is reports whether err is an *Error of category cat.
func Is(err error, cat Category) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Category == cat
}

// IsDBError returns true if err is a datastore semantic error.
func IsDBError(err error) bool { return Is(err, DB) }

// IsXMLError returns true if err is a tree-identity/serialization error.
func IsXMLError(err error) bool { return Is(err, XML) }

// IsProtoError returns true if err is a frame-decoding error.
func IsProtoError(err error) bool { return Is(err, Proto) }

// IsFatalError returns true if err is a programmer/invariant violation.
func IsFatalError(err error) bool { return Is(err, Fatal) }

// IsPluginError returns true if err is a plugin load/ABI error.
func IsPluginError(err error) bool { return Is(err, Plugin) }

// IsAuthError returns true if err is a session auth-chain rejection.
func IsAuthError(err error) bool { return Is(err, Auth) }
