package types

import (
	"errors"
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindIO                     ErrKind = iota // store failure without a more specific category
	ErrKindNotFound                              // missing key/value/path
	ErrKindPermissionDenied                      // access rights not granted
	ErrKindInvalidPath                           // malformed path or name
	ErrKindNotEmpty                              // key still has subkeys
	ErrKindTypeMismatch                          // stored RegType not accepted by the target type
	ErrKindMalformedValue                        // payload inconsistent with its RegType
	ErrKindNoFieldName                           // structured value has no name to store under
	ErrKindParse                                 // stored content cannot be coerced to the requested shape
	ErrKindNotImplemented                        // structural shape with no store mapping
	ErrKindTransactionFailed                     // commit/rollback failed or transaction not active
	ErrKindTransactionUnsupported                // platform lacks transaction support
	ErrKindClosed                                // use of a released handle
)

var kindNames = [...]string{
	ErrKindIO:                     "io",
	ErrKindNotFound:               "not found",
	ErrKindPermissionDenied:       "permission denied",
	ErrKindInvalidPath:            "invalid path",
	ErrKindNotEmpty:               "not empty",
	ErrKindTypeMismatch:           "type mismatch",
	ErrKindMalformedValue:         "malformed value",
	ErrKindNoFieldName:            "no field name",
	ErrKindParse:                  "parse error",
	ErrKindNotImplemented:         "not implemented",
	ErrKindTransactionFailed:      "transaction failed",
	ErrKindTransactionUnsupported: "transactions unsupported",
	ErrKindClosed:                 "handle closed",
}

func (k ErrKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// Error is a typed error with an optional underlying cause.
//
// Op names the failing operation ("open", "set_value", "encode", ...), Path
// the key or field path it was applied to. Both may be empty.
type Error struct {
	Kind ErrKind
	Op   string
	Path string
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	msg := e.Msg
	if msg == "" && e.Err == nil {
		msg = e.Kind.String()
	}
	if msg != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(msg)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by Kind, so errors.Is(err, ErrNotFound)
// holds for every not-found failure regardless of op or path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	if t.Op != "" || t.Path != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels commonly returned by implementations.
var (
	ErrIO                     = &Error{Kind: ErrKindIO, Msg: "store failure"}
	ErrNotFound               = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	ErrPermissionDenied       = &Error{Kind: ErrKindPermissionDenied, Msg: "permission denied"}
	ErrInvalidPath            = &Error{Kind: ErrKindInvalidPath, Msg: "invalid path"}
	ErrNotEmpty               = &Error{Kind: ErrKindNotEmpty, Msg: "key has subkeys"}
	ErrTypeMismatch           = &Error{Kind: ErrKindTypeMismatch, Msg: "registry value has different type"}
	ErrMalformedValue         = &Error{Kind: ErrKindMalformedValue, Msg: "malformed registry value"}
	ErrNoFieldName            = &Error{Kind: ErrKindNoFieldName, Msg: "no field name"}
	ErrParse                  = &Error{Kind: ErrKindParse, Msg: "parse error"}
	ErrNotImplemented         = &Error{Kind: ErrKindNotImplemented, Msg: "not implemented"}
	ErrTransactionFailed      = &Error{Kind: ErrKindTransactionFailed, Msg: "transaction failed"}
	ErrTransactionUnsupported = &Error{Kind: ErrKindTransactionUnsupported, Msg: "transactions not supported"}
	ErrClosed                 = &Error{Kind: ErrKindClosed, Msg: "use of closed handle"}
)

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches op and path to a backend failure. Errno causes are
// classified through Errno.Kind; an existing *Error keeps its kind and gains
// the outer context. Wrap(nil) is nil.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Op: op, Path: path, Err: err}
}

// KindOf returns the category of err. Unclassified non-nil errors are IO.
func KindOf(err error) ErrKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	var en Errno
	if errors.As(err, &en) {
		return en.Kind()
	}
	return ErrKindIO
}

// IsKind reports whether err belongs to kind.
func IsKind(err error, kind ErrKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsStoreFailure reports whether the root cause of err was a call into the
// store (an Errno somewhere in the chain), as opposed to a data-shape or
// conversion failure raised by regkit itself.
func IsStoreFailure(err error) bool {
	var en Errno
	return errors.As(err, &en)
}

// ErrnoOf extracts the native error code from err's chain.
func ErrnoOf(err error) (Errno, bool) {
	var en Errno
	if errors.As(err, &en) {
		return en, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Native error codes
// -----------------------------------------------------------------------------

// Errno is a Win32 error code as returned by the registry and KTM APIs.
// Backends report failures as Errno so every implementation speaks the same
// codes.
type Errno uint32

const (
	ERROR_SUCCESS                       Errno = 0
	ERROR_FILE_NOT_FOUND                Errno = 2
	ERROR_PATH_NOT_FOUND                Errno = 3
	ERROR_ACCESS_DENIED                 Errno = 5
	ERROR_INVALID_HANDLE                Errno = 6
	ERROR_INVALID_PARAMETER             Errno = 87
	ERROR_CALL_NOT_IMPLEMENTED          Errno = 120
	ERROR_INVALID_NAME                  Errno = 123
	ERROR_BAD_PATHNAME                  Errno = 161
	ERROR_MORE_DATA                     Errno = 234
	ERROR_NO_MORE_ITEMS                 Errno = 259
	ERROR_BADKEY                        Errno = 1010
	ERROR_CANTOPEN                      Errno = 1011
	ERROR_CANTREAD                      Errno = 1012
	ERROR_CANTWRITE                     Errno = 1013
	ERROR_KEY_DELETED                   Errno = 1018
	ERROR_KEY_HAS_CHILDREN              Errno = 1020
	ERROR_INVALID_TRANSACTION           Errno = 6700
	ERROR_TRANSACTION_NOT_ACTIVE        Errno = 6701
	ERROR_TRANSACTION_ALREADY_ABORTED   Errno = 6704
	ERROR_TRANSACTION_ALREADY_COMMITTED Errno = 6705
	ERROR_TRANSACTIONAL_CONFLICT        Errno = 6800
)

var errnoText = map[Errno]string{
	ERROR_SUCCESS:                       "the operation completed successfully",
	ERROR_FILE_NOT_FOUND:                "the system cannot find the file specified",
	ERROR_PATH_NOT_FOUND:                "the system cannot find the path specified",
	ERROR_ACCESS_DENIED:                 "access is denied",
	ERROR_INVALID_HANDLE:                "the handle is invalid",
	ERROR_INVALID_PARAMETER:             "the parameter is incorrect",
	ERROR_CALL_NOT_IMPLEMENTED:          "this function is not supported on this system",
	ERROR_INVALID_NAME:                  "the filename, directory name, or volume label syntax is incorrect",
	ERROR_BAD_PATHNAME:                  "the specified path is invalid",
	ERROR_MORE_DATA:                     "more data is available",
	ERROR_NO_MORE_ITEMS:                 "no more data is available",
	ERROR_BADKEY:                        "the configuration registry key is invalid",
	ERROR_CANTOPEN:                      "the configuration registry key could not be opened",
	ERROR_CANTREAD:                      "the configuration registry key could not be read",
	ERROR_CANTWRITE:                     "the configuration registry key could not be written",
	ERROR_KEY_DELETED:                   "illegal operation attempted on a registry key that has been marked for deletion",
	ERROR_KEY_HAS_CHILDREN:              "cannot create a symbolic link in a registry key that already has subkeys or values",
	ERROR_INVALID_TRANSACTION:           "the transaction handle associated with this operation is not valid",
	ERROR_TRANSACTION_NOT_ACTIVE:        "the transaction is not active",
	ERROR_TRANSACTION_ALREADY_ABORTED:   "the transaction has already been aborted",
	ERROR_TRANSACTION_ALREADY_COMMITTED: "the transaction has already been committed",
	ERROR_TRANSACTIONAL_CONFLICT:        "the function attempted to use a name that is reserved for use by another transaction",
}

func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return fmt.Sprintf("winerror %d", uint32(e))
}

// Kind maps the native code onto regkit's error taxonomy.
func (e Errno) Kind() ErrKind {
	switch e {
	case ERROR_FILE_NOT_FOUND, ERROR_PATH_NOT_FOUND, ERROR_KEY_DELETED:
		return ErrKindNotFound
	case ERROR_ACCESS_DENIED:
		return ErrKindPermissionDenied
	case ERROR_INVALID_HANDLE:
		return ErrKindClosed
	case ERROR_INVALID_NAME, ERROR_BAD_PATHNAME, ERROR_BADKEY:
		return ErrKindInvalidPath
	case ERROR_KEY_HAS_CHILDREN:
		return ErrKindNotEmpty
	case ERROR_CALL_NOT_IMPLEMENTED:
		return ErrKindTransactionUnsupported
	case ERROR_INVALID_TRANSACTION, ERROR_TRANSACTION_NOT_ACTIVE,
		ERROR_TRANSACTION_ALREADY_ABORTED, ERROR_TRANSACTION_ALREADY_COMMITTED,
		ERROR_TRANSACTIONAL_CONFLICT:
		return ErrKindTransactionFailed
	default:
		return ErrKindIO
	}
}

// Is lets errors.Is(err, ErrNotFound) match a bare Errno too.
func (e Errno) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Path != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind()
}
