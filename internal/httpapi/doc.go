// Package httpapi exposes a Marketplace over HTTP.
//
// Mutating routes take the requesting identity from the X-Requester header.
// Domain errors map to statuses by code: UNAUTHORIZED is 403,
// INVARIANT_VIOLATION is 409, INVALID_ARGUMENT is 400 and NOT_FOUND is 404.
//
// GET /entries/next long-polls a one-shot watch: the request blocks until
// the next entry of the requested kind is appended, or answers 204 when the
// poll window closes first.
package httpapi
