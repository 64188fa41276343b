package rest

import "net/http"

// AuthFunc decorates an outgoing request with credentials.
type AuthFunc func(req *http.Request)

// Bearer sets an Authorization bearer token.
func Bearer(token string) AuthFunc {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Basic sets HTTP basic credentials.
func Basic(user, password string) AuthFunc {
	return func(req *http.Request) {
		req.SetBasicAuth(user, password)
	}
}

// Header sets a fixed header, for API-key schemes.
func Header(name, value string) AuthFunc {
	return func(req *http.Request) {
		req.Header.Set(name, value)
	}
}
