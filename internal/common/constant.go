// Package common contains shared constants and sentinel errors used across
// La Bandina components.
package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key used to
// carry the access token as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme prefix for access tokens.
const BearerScheme = "Bearer"

// DefaultKeyMappingName is the name reserved for a user's default key mapping.
const DefaultKeyMappingName = "default"
