package schema

import (
	"path/filepath"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// imageExt is the fixed allow-list of filename extensions treated as images
// for thumbnail generation and post-upload warm-up.
var imageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// IsImagePath reports whether the object key names an image, by extension.
func IsImagePath(key string) bool {
	return imageExt[strings.ToLower(filepath.Ext(key))]
}
