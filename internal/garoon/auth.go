package garoon

import (
	"encoding/base64"
	"net/http"
)

const (
	authHeader   = "X-Cybozu-Authorization"
	acceptHeader = "application/json; charset=UTF-8"
	userAgent    = "garoonsync/1.0"
)

// Authorization returns the value of the X-Cybozu-Authorization header:
// base64 of "userID:password".
func Authorization(userID, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(userID + ":" + password))
}

// authTransport adds Garoon password authentication and the fixed
// headers to each request.
type authTransport struct {
	authorization string
	Transport     http.RoundTripper
}

// RoundTrip clones the request before touching headers, as required of
// a RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(authHeader, t.authorization)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}
