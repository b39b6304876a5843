package watch

import (
	"errors"
	"fmt"
	"net/url"
)

// Keys of the watch message dictionaries. They are shared with the host
// application and must not change.
const (
	TypeKey = "msg"

	NameKey = "name"
	URLKey  = "url"
	TextKey = "text"
	ListKey = "list"
)

// MessageType is the value of TypeKey.
type MessageType string

const (
	ListAllNotes MessageType = "list"
	LoadNote     MessageType = "load"
	CreateNote   MessageType = "create"
)

// HandoffDocumentURLKey carries the note URL in a handoff user activity.
const HandoffDocumentURLKey = "watch_document_url_key"

// NoNamePlaceholder is shown for summaries without a name.
const NoNamePlaceholder = "(no name)"

var (
	// ErrMalformedReply is returned when a reply lacks the field its request
	// type requires.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrMalformedRequest is returned for requests missing a type or a
	// required field.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnknownMessage is returned for request types the host does not handle.
	ErrUnknownMessage = errors.New("unknown message type")
)

// Message is the loosely typed dictionary that travels over the pairing
// channel. Core logic works on the typed records below instead.
type Message map[string]any

// Request is a decoded watch request.
type Request struct {
	Type MessageType
	Text string // CreateNote
	URL  string // LoadNote
}

// Message encodes the request for the wire.
func (r Request) Message() Message {
	m := Message{TypeKey: string(r.Type)}
	switch r.Type {
	case CreateNote:
		m[TextKey] = r.Text
	case LoadNote:
		m[URLKey] = r.URL
	}
	return m
}

// ParseRequest validates an incoming request dictionary.
func ParseRequest(m Message) (Request, error) {
	t, ok := m[TypeKey].(string)
	if !ok || t == "" {
		return Request{}, fmt.Errorf("%w: missing %q", ErrMalformedRequest, TypeKey)
	}

	req := Request{Type: MessageType(t)}
	switch req.Type {
	case ListAllNotes:
	case CreateNote:
		text, ok := m[TextKey].(string)
		if !ok {
			return Request{}, fmt.Errorf("%w: create without %q", ErrMalformedRequest, TextKey)
		}
		req.Text = text
	case LoadNote:
		u, ok := m[URLKey].(string)
		if !ok || u == "" {
			return Request{}, fmt.Errorf("%w: load without %q", ErrMalformedRequest, URLKey)
		}
		req.URL = u
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownMessage, t)
	}
	return req, nil
}

// Summary describes a note without its content.
type Summary struct {
	Name string
	// URL locates the note for a later load. It is nil for notes that have no
	// storage yet.
	URL *url.URL
}

// NewSummary builds a summary, parsing locator if non-empty.
func NewSummary(name, locator string) Summary {
	s := Summary{Name: name}
	if s.Name == "" {
		s.Name = NoNamePlaceholder
	}
	if locator != "" {
		if u, err := url.Parse(locator); err == nil {
			s.URL = u
		}
	}
	return s
}

// Locator returns the URL as a string, or "" when absent.
func (s Summary) Locator() string {
	if s.URL == nil {
		return ""
	}
	return s.URL.String()
}

// parseSummary converts one list element. Fields of the wrong type are
// treated as absent.
func parseSummary(v any) (Summary, bool) {
	m, ok := asMap(v)
	if !ok {
		return Summary{}, false
	}
	name, _ := m[NameKey].(string)
	locator, _ := m[URLKey].(string)
	return NewSummary(name, locator), true
}

func (s Summary) message() Message {
	m := Message{NameKey: s.Name}
	if s.URL != nil {
		m[URLKey] = s.URL.String()
	}
	return m
}

// SummariesMessage encodes a list/create reply.
func SummariesMessage(list []Summary) Message {
	items := make([]any, 0, len(list))
	for _, s := range list {
		items = append(items, map[string]any(s.message()))
	}
	return Message{ListKey: items}
}

// ParseSummaries decodes a list/create reply. Elements that are not
// dictionaries are skipped.
func ParseSummaries(m Message) ([]Summary, error) {
	raw, ok := m[ListKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedReply, ListKey)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrMalformedReply, ListKey, raw)
	}

	out := make([]Summary, 0, len(items))
	for _, item := range items {
		if s, ok := parseSummary(item); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// TextMessage encodes a load reply.
func TextMessage(text string) Message {
	return Message{TextKey: text}
}

// ParseText decodes a load reply.
func ParseText(m Message) (string, error) {
	text, ok := m[TextKey].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrMalformedReply, TextKey)
	}
	return text, nil
}

// ErrMalformedHandoff is returned for handoff user info without a note URL.
var ErrMalformedHandoff = errors.New("malformed handoff")

// HandoffMessage is the user info of a handoff activity that continues
// viewing the note at locator on another device.
func HandoffMessage(locator string) Message {
	return Message{HandoffDocumentURLKey: locator}
}

// ParseHandoff returns the note URL carried by handoff user info.
func ParseHandoff(m Message) (string, error) {
	locator, ok := m[HandoffDocumentURLKey].(string)
	if !ok || locator == "" {
		return "", fmt.Errorf("%w: missing %q", ErrMalformedHandoff, HandoffDocumentURLKey)
	}
	return locator, nil
}

// asMap accepts the dictionary shapes produced by the JSON and CBOR codecs.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Message:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}
