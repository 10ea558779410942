// Package startup owns process initialization: configuration loading
// and validation, the startup banner, and the structured log sections
// emitted while the server boots and shuts down.
//
// Configuration comes from environment variables, optionally seeded
// from a .env file. LoadConfig validates directories up front so later
// components can assume their paths exist and are writable.
package startup
