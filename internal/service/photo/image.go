package photo

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	svcErr "github.com/oggyb/birdie/internal/errors"
)

// MaxImageBytes caps a decoded upload.
const MaxImageBytes = 8 << 20

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
}

// Ext is the file extension for the image's content type.
func (i Image) Ext() string { return extensions[i.ContentType] }

// DecodeImage accepts "data:image/png;base64,..." or bare base64 and sniffs
// the real content type from the bytes. Only JPEG, PNG, WebP and GIF pass.
func DecodeImage(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, svcErr.InvalidInput("photo is required")
	}

	payload := raw
	if strings.HasPrefix(raw, "data:") {
		meta, data, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return Image{}, svcErr.InvalidInput("photo must be a base64 data URI")
		}
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some clients strip the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil || len(data) == 0 {
		return Image{}, svcErr.InvalidInput("photo is not valid base64")
	}
	if len(data) > MaxImageBytes {
		return Image{}, svcErr.InvalidInput(fmt.Sprintf("photo exceeds %d MB", MaxImageBytes>>20))
	}

	ct := http.DetectContentType(data)
	if _, ok := extensions[ct]; !ok {
		return Image{}, svcErr.InvalidInput("photo must be a JPEG, PNG, WebP or GIF image")
	}
	return Image{Data: data, ContentType: ct}, nil
}

// ObjectKey is where a user's new image is stored.
func ObjectKey(userID uint64, img Image) string {
	return fmt.Sprintf("users/%d/%s.%s", userID, uuid.NewString(), img.Ext())
}
