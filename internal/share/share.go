// Package share builds and reads the ?p= links that reproduce a visualization.
package share

import (
	"fmt"
	"net/url"
)

// Param is the query parameter carrying the prompt.
const Param = "p"

// Encode returns base with the prompt set as the p parameter. Spaces are
// encoded as "+". Other query parameters on base are kept.
func Encode(base, prompt string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("share.Encode: %w", err)
	}
	q := u.Query()
	q.Set(Param, prompt)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Decode extracts the prompt from a raw query string. A missing or empty p
// yields "".
func Decode(rawQuery string) (string, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("share.Decode: %w", err)
	}
	return q.Get(Param), nil
}
