// Package config loads and persists TickTick API credentials.
//
// Credentials come from a dotenv-style file (default ".env") and from
// process environment variables, with the environment taking precedence.
// The package also writes rotated tokens back to the file after a
// refresh, preserving every unrelated line byte-for-byte.
package config
