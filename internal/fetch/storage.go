package fetch

import (
	"net/url"
	"strings"
)

// supabasePublicPrefix is the path prefix of Supabase public storage objects
const supabasePublicPrefix = "/storage/v1/object/public/"

// IsSupabaseStorage reports whether urlStr points at a Supabase project.
func IsSupabaseStorage(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Host), "supabase.co")
}

// PrepareURL adapts an artifact URL for download. Supabase storage URLs get
// their object path escaped segment by segment, and when apiKey is set the
// returned headers authenticate the request. Other URLs pass through.
func PrepareURL(urlStr, apiKey string) (string, map[string]string) {
	parsed, err := url.Parse(urlStr)
	if err != nil || !strings.Contains(strings.ToLower(parsed.Host), "supabase.co") {
		return urlStr, nil
	}

	var headers map[string]string
	if apiKey != "" {
		headers = map[string]string{
			"apikey":        apiKey,
			"Authorization": "Bearer " + apiKey,
		}
	}

	if idx := strings.Index(parsed.Path, supabasePublicPrefix); idx >= 0 {
		object := parsed.Path[idx+len(supabasePublicPrefix):]
		segments := strings.Split(object, "/")
		for i, s := range segments {
			segments[i] = url.PathEscape(s)
		}
		parsed.RawPath = parsed.Path[:idx] + supabasePublicPrefix + strings.Join(segments, "/")
	}

	return parsed.String(), headers
}
