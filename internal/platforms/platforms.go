package platforms

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yourusername/link-resolve-go/internal/resolver"
)

// All returns every known platform parser, bound to the shared
// environment. The dispatcher registry is built from this list once at
// startup; adding a platform means adding a constructor here.
func All(env *resolver.Env) []resolver.Parser {
	return []resolver.Parser{
		NewTwitterParser(env),
		NewKuaishouParser(env),
		NewWeiboParser(env),
		NewBilibiliParser(env),
		NewNeteaseParser(env),
	}
}

// errNoMedia signals that a platform response carried no extractable
// media, which handlers surface as an extraction failure
var errNoMedia = errors.New("no media found in platform response")

func decodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
