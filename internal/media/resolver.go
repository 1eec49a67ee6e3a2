package media

import (
	"net/url"
	"strings"
)

// Transport classifies how a media URL is delivered.
type Transport string

const (
	TransportStreaming   Transport = "streaming"   // manifest-driven (HLS/DASH)
	TransportProgressive Transport = "progressive" // single downloadable file
)

// BufferProfile holds the buffering parameters the playback surface should
// apply for a given transport.
type BufferProfile struct {
	Transport       Transport `json:"transport"`
	PreBufferSec    int       `json:"pre_buffer_sec"`
	AllowCache      bool      `json:"allow_cache"`
	RebufferGoalSec int       `json:"rebuffer_goal_sec"`
}

var streamingSuffixes = []string{".m3u8", ".m3u", ".mpd"}

// Classify maps a media URL to its transport by suffix/keyword heuristics.
// Unknown shapes fall back to progressive, which every player can handle.
func Classify(rawURL string) Transport {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, suf := range streamingSuffixes {
		if strings.HasSuffix(lower, suf) {
			return TransportStreaming
		}
	}
	if strings.Contains(strings.ToLower(rawURL), "manifest") {
		return TransportStreaming
	}
	return TransportProgressive
}

// Resolve produces the buffering profile for a media URL. Streaming
// manifests get aggressive pre-buffering and no caching (segments churn);
// progressive files use standard caching.
func Resolve(rawURL string) BufferProfile {
	switch Classify(rawURL) {
	case TransportStreaming:
		return BufferProfile{
			Transport:       TransportStreaming,
			PreBufferSec:    6,
			AllowCache:      false,
			RebufferGoalSec: 2,
		}
	default:
		return BufferProfile{
			Transport:       TransportProgressive,
			PreBufferSec:    2,
			AllowCache:      true,
			RebufferGoalSec: 5,
		}
	}
}
