// Package common contains shared constants and sentinel errors used across
// the client packages.
package common

// AuthorizationHeaderName carries the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is prepended to the stored access token.
const BearerPrefix = "Bearer "

// TempIDPrefix marks entity ids generated on the client before the server
// assigned a real one.
const TempIDPrefix = "tmp-"
