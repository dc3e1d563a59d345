// Package client talks to the timesheet tracker's REST API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface): Do issues one
//     method + endpoint + JSON payload request, Ping checks reachability.
//  2. A net/http implementation (see HTTPClient) that prefixes the API base
//     path, injects the bearer credential from a TokenSource and maps
//     transport failures and status codes to sentinel errors.
//
// # Error Handling
//
// Callers match conditions with errors.Is: ErrUnavailable (the request never
// reached a healthy server), ErrUnauthorized (401), ErrRejected (other 4xx,
// including 403) and ErrServer (5xx). Rejected and server errors carry an
// *APIError with the status code and the server's detail message.
//
// Only ErrUnavailable means "try again later"; everything else is a real
// answer from the server.
package client
