// Package authn defines the AuthService port: the boundary between this
// module and whatever external system issues account tokens.
//
// Service.DecodeToken verifies a bearer token and returns the Claims
// (account ID, email) a room needs to decide ownership. JWTService is the
// concrete implementation used in development and in deployments that
// issue their own HS256 tokens; a production deployment backed by a
// separate identity provider can supply any other Service implementation.
package authn
