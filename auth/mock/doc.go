// Package mock provides an in-process implementation of the storefront
// authentication API for tests and local development.
//
// The service issues HS256 JWT access tokens and rotating refresh tokens,
// keeps users in memory and exposes hooks to force expired tokens, failing
// or slow refreshes.
package mock
