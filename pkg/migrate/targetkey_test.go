package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylarkhq/assetferry/pkg/catalog"
)

func TestTargetKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		asset  catalog.AssetDescriptor
		want   string
	}{
		{
			name:   "default prefix",
			prefix: "",
			asset:  catalog.AssetDescriptor{PublicID: "events/2024/opening", Format: "jpg"},
			want:   "cloudinary/events/2024/opening.jpg",
		},
		{
			name:   "custom prefix",
			prefix: "archive/media/",
			asset:  catalog.AssetDescriptor{PublicID: "logo", Format: "png"},
			want:   "archive/media/logo.png",
		},
		{
			name:   "no format omits extension",
			prefix: "cloudinary/",
			asset:  catalog.AssetDescriptor{PublicID: "raw/blob"},
			want:   "cloudinary/raw/blob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetKey(tt.prefix, tt.asset))
		})
	}
}

func TestTargetKeyDeterministic(t *testing.T) {
	a := catalog.AssetDescriptor{PublicID: "products/shoe-41", Format: "webp"}

	first := TargetKey("cloudinary/", a)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, TargetKey("cloudinary/", a))
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFor("jpg"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("JPEG"))
	assert.Equal(t, "video/mp4", ContentTypeFor("mp4"))
	assert.Equal(t, GenericContentType, ContentTypeFor("psd"))
	assert.Equal(t, GenericContentType, ContentTypeFor(""))
}

func TestMetadataFor(t *testing.T) {
	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	a := catalog.AssetDescriptor{
		PublicID:     "events/gala",
		Format:       "jpg",
		Bytes:        204800,
		Width:        1920,
		Height:       1080,
		CreatedAt:    created,
		Tags:         []string{"event", "2024"},
		Context:      map[string]string{"alt": "Gala night", "caption": "Opening"},
		ResourceType: "image",
	}

	md := MetadataFor(a)

	assert.Equal(t, "events/gala", md["source-public-id"])
	assert.Equal(t, "image", md["source-resource-type"])
	assert.Equal(t, "204800", md["source-bytes"])
	assert.Equal(t, "2024-03-15T10:30:00Z", md["source-created-at"])
	assert.Equal(t, "1920", md["source-width"])
	assert.Equal(t, "1080", md["source-height"])
	assert.Equal(t, "event,2024", md["source-tags"])
	assert.Equal(t, "Gala night", md["ctx-alt"])
	assert.Equal(t, "Opening", md["ctx-caption"])
}

func TestMetadataForOmitsAbsentFields(t *testing.T) {
	md := MetadataFor(catalog.AssetDescriptor{PublicID: "raw/blob", ResourceType: "raw"})

	assert.NotContains(t, md, "source-created-at")
	assert.NotContains(t, md, "source-width")
	assert.NotContains(t, md, "source-height")
	assert.NotContains(t, md, "source-tags")
}

func TestContextRoundTrip(t *testing.T) {
	a := catalog.AssetDescriptor{
		PublicID: "p",
		Context:  map[string]string{"alt": "Alt text", "source": "dam"},
	}

	got := ContextFromMetadata(MetadataFor(a))
	require.Equal(t, a.Context, got)
}
