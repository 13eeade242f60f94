package common

// AccessTokenHeaderName is the gRPC metadata key carrying the caller's
// access token.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName is the gRPC metadata key echoing the request id.
const RequestIDHeaderName = "x-request-id"
