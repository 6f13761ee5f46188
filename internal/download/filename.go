package download

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// generateFileName builds a stable cache file name for a URL. The name
// is a hash of the full URL so repeated downloads of the same resource
// land on the same file; the extension is taken from the URL path when
// present, otherwise from the fallback.
func generateFileName(rawURL, fallbackExt string) string {
	sum := md5.Sum([]byte(rawURL))
	name := hex.EncodeToString(sum[:16])

	ext := fallbackExt
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return name + ext
}
