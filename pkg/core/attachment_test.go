package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notes/pkg/core"
)

func TestKindForName(t *testing.T) {
	assert.Equal(t, core.KindLocation, core.KindForName(core.LocationAttachment))
	assert.Equal(t, core.KindImage, core.KindForName("photo1.PNG"))
	assert.Equal(t, core.KindImage, core.KindForName("scan.jpeg"))
	assert.Equal(t, core.KindGeneric, core.KindForName("readme.txt"))
	assert.Equal(t, core.KindGeneric, core.KindForName("noext"))
}

func TestParseLocation(t *testing.T) {
	t.Run("Both Coordinates", func(t *testing.T) {
		loc, err := core.ParseLocation([]byte(`{"lat":-42.882743,"long":147.330234}`))
		require.NoError(t, err)
		assert.Equal(t, core.DefaultLocation, loc)
	})

	t.Run("Missing Either Coordinate", func(t *testing.T) {
		for _, payload := range []string{`{"lat":1}`, `{"long":2}`, `{}`} {
			_, err := core.ParseLocation([]byte(payload))
			assert.ErrorIs(t, err, core.ErrIncompleteLocation, payload)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, payload := range []string{`not json`, `{"lat":"1","long":"2"}`} {
			_, err := core.ParseLocation([]byte(payload))
			assert.Error(t, err, payload)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		data, err := core.Location{Lat: 1.25, Long: -3.5}.Marshal()
		require.NoError(t, err)
		assert.JSONEq(t, `{"lat":1.25,"long":-3.5}`, string(data))
	})
}

func TestAttachmentLocation(t *testing.T) {
	a := core.NewAttachment("pin.json", []byte(`{"lat":1,"long":2}`))
	loc, ok := a.Location()
	assert.True(t, ok)
	assert.Equal(t, core.Location{Lat: 1, Long: 2}, loc)

	_, ok = core.NewAttachment("pin.json", []byte(`{"long":2}`)).Location()
	assert.False(t, ok)

	_, ok = core.NewAttachment("pin.png", []byte(`{"lat":1,"long":2}`)).Location()
	assert.False(t, ok, "only location attachments decode")
}

func TestNewAttachmentName(t *testing.T) {
	a := core.NewAttachmentName(".json")
	b := core.NewAttachmentName("json")
	assert.True(t, strings.HasSuffix(a, ".json"))
	assert.NotEqual(t, a, b)
	assert.NoError(t, core.ValidateAttachmentName(a))
}

func TestValidateAttachmentName(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, ".hidden.png", ".bashrc"} {
		assert.ErrorIs(t, core.ValidateAttachmentName(bad), core.ErrInvalidAttachmentName, bad)
	}
	assert.NoError(t, core.ValidateAttachmentName("photo1.png"))
	assert.NoError(t, core.ValidateAttachmentName("scan.2024.png"))
}

func TestLayoutPaths(t *testing.T) {
	assert.Equal(t, "Attachments/photo1.png", core.AttachmentPath("photo1.png"))
	assert.Equal(t, "QuickLook/Thumbnail.png", core.QuickLookPath(core.QuickLookThumbnail))
}
