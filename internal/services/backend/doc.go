// Package backend is the HTTP client for the filesorter classification
// service.
//
// It covers the three endpoints the agent needs: classifying a file, logging a
// completed move, and fetching the user's rules for offline caching. Every
// request carries the bearer token, waits on a shared rate limiter, and maps a
// 402 response to services.ErrQuota. Login and token refresh are out of scope:
// the token is supplied by configuration.
package backend
