// Package client is the registry's gRPC client. GRPCClient manages the
// connection, attaches the access token to every call and maps gRPC status
// codes onto sentinel errors that callers can match with errors.Is.
package client
