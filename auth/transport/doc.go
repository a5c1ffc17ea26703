// Package transport implements an http.RoundTripper that attaches the stored
// access token to every outgoing request and recovers from a `401
// Unauthorized` by refreshing the token pair once and replaying the request.
//
// Concurrent requests that hit a 401 while a refresh is already running wait
// for that refresh instead of starting their own, so the refresh token is
// presented to the server by exactly one call at a time. A replayed request
// is never recovered again.
package transport
