package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorDomain names the domain every classified error belongs to.
const ErrorDomain = "NotesErrorDomain"

// Kind classifies what went wrong while loading or saving a note package.
type Kind int

const (
	// CannotAccessDocument means the package root could not be found or opened.
	CannotAccessDocument Kind = iota

	// CannotLoadFileWrappers means the root opened but its entries could not be listed.
	CannotLoadFileWrappers

	// CannotLoadText means the Text.rtf entry is missing or unreadable.
	CannotLoadText

	// CannotAccessAttachments means the Attachments folder exists but could not be read.
	CannotAccessAttachments

	// CannotSaveText means the Text.rtf entry could not be written.
	CannotSaveText

	// CannotSaveAttachment means an attachment could not be written.
	CannotSaveAttachment
)

var kindNames = [...]string{
	CannotAccessDocument:    "cannotAccessDocument",
	CannotLoadFileWrappers:  "cannotLoadFileWrappers",
	CannotLoadText:          "cannotLoadText",
	CannotAccessAttachments: "cannotAccessAttachments",
	CannotSaveText:          "cannotSaveText",
	CannotSaveAttachment:    "cannotSaveAttachment",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is a classified failure. Context carries diagnostic values such as the
// entry or attachment that failed.
type Error struct {
	Kind    Kind
	Context map[string]any
	Err     error
}

// Err builds a classified error with optional context.
func Err(kind Kind, context map[string]any) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap builds a classified error around an underlying cause.
func Wrap(kind Kind, cause error, context map[string]any) *Error {
	return &Error{Kind: kind, Context: context, Err: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(ErrorDomain)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a classified error of the same kind, so that
// errors.Is(err, core.Err(core.CannotLoadText, nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the classification from err, if any.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
