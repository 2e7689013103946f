// Package auth provides the API key middleware.
//
// Requests must carry the key in the X-API-Key header or the api_key query
// parameter. An empty key disables the check, and paths listed in Skip are
// always served.
package auth
