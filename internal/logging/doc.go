// Package logging wraps zap with context-aware logging for buildledger.
//
// Correlation data (request ID, user ID, project ID) travels in
// context.Context and is attached to every log line automatically. The
// logger level is atomic so the config watcher can change it at runtime
// without restarting the server.
package logging
