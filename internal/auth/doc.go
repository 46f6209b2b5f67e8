// Package auth manages user accounts, gateway credentials and API access
// tokens.
//
// Two credential kinds exist. Gateway tokens are long-lived random
// secrets a bridge installation presents over the TCP gateway; they are
// stored hashed and resolve to a user account. Access tokens are
// short-lived HS256 JWTs presented by the fulfillment caller; they are
// validated by signature alone with no database hit.
package auth
