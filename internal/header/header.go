// Package header holds the response metadata header names shared by the
// server and client, and the percent-encoding used for their values.
package header

import (
	"net/url"
	"strings"
)

// Response metadata headers.
const (
	Transcript = "X-Transcript"
	Response   = "X-Response"
	Latencies  = "X-Latencies"
	RequestID  = "X-Request-Id"
)

// url.QueryEscape escapes a few characters browsers leave alone, and
// writes spaces as '+'.
var componentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Encode percent-encodes s the way encodeURIComponent does: everything
// except A-Z a-z 0-9 and - _ . ! ~ * ' ( ) is escaped as UTF-8 bytes.
func Encode(s string) string {
	return componentFixups.Replace(url.QueryEscape(s))
}

// Decode reverses Encode. '+' is kept literally.
func Decode(s string) (string, error) {
	return url.PathUnescape(s)
}
