// Package google manages the OAuth lifecycle of the connected Google
// Calendar account.
//
// CredentialManager hands out access tokens that stay valid for at least
// RefreshMargin. Near expiry it refreshes them once per account, however
// many callers are waiting, and writes the result back to the store. A
// missing or rejected refresh token yields ErrReauthorizationRequired.
//
// Connector implements the account flows on top of it: the OAuth callback
// (exchange, identify, upsert), activation and disconnect with revocation.
package google
