// Package common contains shared constants and sentinel errors used across
// LeftOverChef components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// UploadsURLPrefix is the public path under which stored images are served.
const UploadsURLPrefix = "/uploads/"
