// Package api implements the storefront authentication endpoints on top of
// an *http.Client whose transport is the authenticating gateway.
//
// Register, Login and VerifyOTP persist the returned token pair; Logout
// revokes the refresh token server side and always clears local
// credentials.
package api
