// Package apiclient assembles the storefront API client: durable token
// storage, the authenticating transport with single-flight refresh, the
// auth endpoints and the session manager.
//
// Typical use:
//
//	cfg := config.MustLoad("")
//	client, err := apiclient.New(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
//	user, err := client.Session.Login(ctx, "user@example.com", "secret")
//
// client.HTTP can be used for any other protected endpoint; expired access
// tokens are refreshed and the call replayed transparently.
package apiclient
