package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MediaKind discriminates what an attachment holds.
type MediaKind string

const (
	KindGeneric  MediaKind = "generic"
	KindImage    MediaKind = "image"
	KindLocation MediaKind = "location"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".heic": true,
	".tiff": true,
}

// KindForName infers the media kind from the attachment's file extension.
func KindForName(name string) MediaKind {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case ext == ".json":
		return KindLocation
	case imageExtensions[ext]:
		return KindImage
	default:
		return KindGeneric
	}
}

// Attachment is a named binary blob stored in a note's Attachments folder.
type Attachment struct {
	Name string
	Data []byte
	Kind MediaKind
}

// NewAttachment builds an attachment, inferring its kind from the name.
func NewAttachment(name string, data []byte) Attachment {
	return Attachment{Name: name, Data: data, Kind: KindForName(name)}
}

// Location decodes the payload of a location attachment. It reports false for
// any other kind or for a payload that is not a complete coordinate pair.
func (a Attachment) Location() (Location, bool) {
	if a.Kind != KindLocation {
		return Location{}, false
	}
	loc, err := ParseLocation(a.Data)
	if err != nil {
		return Location{}, false
	}
	return loc, true
}

// ErrInvalidAttachmentName is returned for names that cannot live inside the
// Attachments folder.
var ErrInvalidAttachmentName = errors.New("invalid attachment name")

// ValidateAttachmentName checks that name is usable as a single, visible
// entry name.
func ValidateAttachmentName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidAttachmentName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidAttachmentName, name)
	case strings.HasPrefix(name, "."):
		// Dot entries are hidden from package listings and would never load back.
		return fmt.Errorf("%w: %q is a hidden name", ErrInvalidAttachmentName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidAttachmentName, name)
	}
	return nil
}

// NewAttachmentName generates a unique attachment name with the given extension.
func NewAttachmentName(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "." + ext
}

// Location is the payload of a location attachment.
type Location struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// DefaultLocation is used when no better coordinate is known.
var DefaultLocation = Location{Lat: -42.882743, Long: 147.330234}

// ErrIncompleteLocation is returned when one of the coordinates is missing.
var ErrIncompleteLocation = errors.New("location requires both lat and long")

// ParseLocation decodes a location payload. Both coordinates are required.
func ParseLocation(data []byte) (Location, error) {
	var raw struct {
		Lat  *float64 `json:"lat"`
		Long *float64 `json:"long"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Location{}, fmt.Errorf("failed to decode location: %w", err)
	}
	if raw.Lat == nil || raw.Long == nil {
		return Location{}, ErrIncompleteLocation
	}
	return Location{Lat: *raw.Lat, Long: *raw.Long}, nil
}

// Marshal encodes the location as an attachment payload.
func (l Location) Marshal() ([]byte, error) {
	return json.Marshal(l)
}
