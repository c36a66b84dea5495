// Package middleware provides HTTP middleware for the livebox API.
//
//   - CORS: gin-contrib/cors restricted to the configured editor origins
//   - RateLimit: per-IP token buckets (x/time/rate) with idle eviction
//   - BodyLimit: caps request bodies so oversized fragments fail early
package middleware
