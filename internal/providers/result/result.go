// Package result unwraps the output shapes remote generation services return.
// Providers disagree on whether the artifact arrives as a bare string, an
// array, or an object carrying a url member, so both remote backends share
// this extraction.
package result

import "strings"

// URL extracts a video reference from any of the documented output shapes:
// a plain string, an array whose first element is a string or exposes a URL,
// an object exposing a url member directly, or an object whose url member is
// itself an object with a url string. Returns "" when nothing matches; an
// empty result is only an error when the job claims success.
func URL(output any) string {
	switch v := output.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return URL(v[0])
	case map[string]any:
		return urlMember(v)
	}
	return ""
}

func urlMember(obj map[string]any) string {
	for _, key := range []string{"url", "video", "video_url"} {
		switch inner := obj[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(inner); trimmed != "" {
				return trimmed
			}
		case map[string]any:
			if nested := urlMember(inner); nested != "" {
				return nested
			}
		}
	}
	return ""
}
