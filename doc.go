// Package main provides the entry point for the GoWeddingShare service.
// It runs a web server using the Fiber framework through which wedding
// guests upload photos and videos to shared galleries and the couple
// reviews, approves and rejects submissions. The application uses gorm
// for data persistence and supports per-gallery overrides of its settings.
package main
