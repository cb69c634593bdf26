package views

import (
	"net/url"
	"strconv"
	"time"
)

// PathEscape wraps url.PathEscape for use in components.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// PostURL returns the site path of a post.
func PostURL(uid string) string {
	return "/posts/" + url.PathEscape(uid) + "/"
}

// ISODate formats t for a datetime attribute. Nil yields "".
func ISODate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ReadingTimeLabel formats a reading time in minutes.
func ReadingTimeLabel(minutes int) string {
	if minutes <= 0 {
		return "menos de 1 min"
	}
	return strconv.Itoa(minutes) + " min"
}
