// Package database provides connection management, a raw statement
// executor with pooled sessions, driver error classification, data
// seeding, configuration types, logging, and health checks built on top
// of Bun.
package database
