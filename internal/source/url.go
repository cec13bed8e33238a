package source

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/groovybits/ltntstools/internal/errors"
)

// urlSpec is the parsed form of the inspector's -i argument.
type urlSpec struct {
	scheme string // "" for a bare file path, otherwise "udp"
	path   string // file path, when scheme == ""
	host   string
	port   int
	rtp    bool // ?rtp=1 or a payload= parameter: depacketize RTP before handing TS packets upstream
}

// parseURL accepts a bare filesystem path or a udp://host:port URL. The
// udp scheme recognizes two equivalent ways of requesting RTP
// depacketization: "?rtp=1" and the SDP-flavored "?payload=33".
func parseURL(raw string) (urlSpec, error) {
	if !strings.Contains(raw, "://") {
		return urlSpec{path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return urlSpec{}, apperrors.NewValidationError("malformed source URL: " + err.Error())
	}

	switch u.Scheme {
	case "udp":
		host := u.Hostname()
		if host == "" {
			return urlSpec{}, apperrors.NewValidationError("udp source URL is missing a host")
		}
		port, err := strconv.Atoi(u.Port())
		if err != nil {
			return urlSpec{}, apperrors.NewValidationError("udp source URL has an invalid port: " + u.Port())
		}
		q := u.Query()
		rtp := q.Get("rtp") == "1" || q.Has("payload")
		return urlSpec{scheme: "udp", host: host, port: port, rtp: rtp}, nil
	default:
		return urlSpec{}, apperrors.NewValidationError("unsupported source URL scheme: " + u.Scheme)
	}
}
