package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPort       = 1935
	DefaultSecurePort = 443
)

var ErrInvalidURL = errors.New("session: invalid rtmp url")

// Link is the parsed connection target.
type Link struct {
	Secure   bool
	Host     string
	Port     int
	App      string
	PlayPath string
	TCURL    string
}

func (l Link) Address() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// ParseURL parses rtmp://host[:port]/app[/playpath]. The first path segment is
// the application; the remainder, if any, is the play path.
func ParseURL(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	var link Link
	switch strings.ToLower(u.Scheme) {
	case "rtmp":
		link.Port = DefaultPort
	case "rtmps":
		link.Secure = true
		link.Port = DefaultSecurePort
	default:
		return Link{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	link.Host = u.Hostname()
	if link.Host == "" {
		return Link{}, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Link{}, fmt.Errorf("%w: invalid port %q", ErrInvalidURL, p)
		}
		link.Port = port
	}

	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return Link{}, fmt.Errorf("%w: missing application", ErrInvalidURL)
	}
	app, playPath, _ := strings.Cut(path, "/")
	link.App = app
	link.PlayPath = playPath
	if u.RawQuery != "" && link.PlayPath != "" {
		link.PlayPath += "?" + u.RawQuery
	}

	tc := *u
	tc.Path = "/" + app
	tc.RawPath = ""
	tc.RawQuery = ""
	tc.Fragment = ""
	link.TCURL = tc.String()
	return link, nil
}
