// Package api provides the HTTPS edge of the service: the Google Smart
// Home fulfillment endpoint and a health endpoint.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Requests to /fulfillment carry a bearer JWT minted during account
// linking; the middleware resolves it to a user before the intent router
// runs.
package api
