package oauth

import (
	"net/url"
	"strconv"
	"time"
)

// Response is the outcome of an implicit-grant authorization, as carried in
// the redirect URI fragment. Either AccessToken or Error is set.
type Response struct {
	AccessToken      string `json:"access_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	State            string `json:"state,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// IsError reports whether the authorization server refused the request.
func (r Response) IsError() bool {
	return r.Error != ""
}

// Lifetime returns expires_in as a duration.
func (r Response) Lifetime() time.Duration {
	return time.Duration(r.ExpiresIn) * time.Second
}

// ParseResponse reads an implicit-grant response from fragment or query
// parameters. A malformed expires_in is reported as an invalid_response error.
func ParseResponse(v url.Values) Response {
	r := Response{
		AccessToken:      v.Get("access_token"),
		TokenType:        v.Get("token_type"),
		State:            v.Get("state"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
	}
	if r.Error != "" {
		return r
	}
	if r.AccessToken == "" {
		return Response{State: r.State, Error: "invalid_response", ErrorDescription: "authorization response carries no access token"}
	}
	if raw := v.Get("expires_in"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Response{State: r.State, Error: "invalid_response", ErrorDescription: "invalid expires_in " + strconv.Quote(raw)}
		}
		r.ExpiresIn = n
	}
	return r
}
