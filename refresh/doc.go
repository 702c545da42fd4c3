// Package refresh recovers API calls that fail because the access token is
// missing or expired.
//
// # Trigger
//
// Only a 401 response whose error envelope carries AUTH_TOKEN_NOT_FOUND starts
// recovery. Every other failure, including other 401s, 403s, 5xx and network
// errors, reaches the caller untouched.
//
// # Recovery cycle
//
//  1. The Coordinator calls the refresh endpoint through its own plain
//     *transport.Transport, which has no recovery attached.
//  2. The new token is written to the credential store.
//  3. The captured request is replayed once through the wrapped sender and its
//     result, success or failure, is returned as-is.
//
// When the refresh call fails the store is cleared, the Navigator is told to
// go to the entry path and the caller receives a *RefreshFailedError.
//
// # Architecture boundaries
//
// The Coordinator accepts only a concrete *transport.Transport for the refresh
// call, never a transport.Sender, so the refresh path cannot be wired back
// into recovery. Concurrent refreshes on one Coordinator share a single
// in-flight call.
package refresh
