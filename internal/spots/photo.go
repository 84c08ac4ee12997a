package spots

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/starford/spotmap/internal/apperr"
)

// MaxPhotoBytes is the largest accepted source image.
const MaxPhotoBytes = 5 << 20

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PhotoFile is a user-chosen image file. Size is the declared byte length;
// an empty ContentType is sniffed from the content.
type PhotoFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AllowedPhotoType reports whether mime is an accepted photo type.
func AllowedPhotoType(mime string) bool {
	return photoTypes[strings.ToLower(strings.TrimSpace(mime))]
}

// ProcessPhoto validates f and returns it as a data URL suitable for inline
// storage.
func ProcessPhoto(ctx context.Context, f PhotoFile) (string, error) {
	if f.Content == nil {
		return "", apperr.Invalid("No photo file provided")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mime := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	if mime != "" && !AllowedPhotoType(mime) {
		return "", apperr.Invalid("Invalid file type. Please use JPEG, PNG, GIF, or WebP")
	}
	if f.Size > MaxPhotoBytes {
		return "", apperr.Invalid("File too large. Maximum size is 5MB")
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, MaxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("read photo %s: %w", f.Name, err)
	}
	if len(data) > MaxPhotoBytes {
		return "", apperr.Invalid("File too large. Maximum size is 5MB")
	}

	if mime == "" {
		mime = strings.Split(http.DetectContentType(data), ";")[0]
		if !AllowedPhotoType(mime) {
			return "", apperr.Invalid("Invalid file type. Please use JPEG, PNG, GIF, or WebP")
		}
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodePhoto splits an inline data URL into its MIME type and bytes.
func DecodePhoto(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("photo is not a data URL")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("invalid data URL: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("only base64 data URLs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return "", nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}
