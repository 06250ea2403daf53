// Package crawler holds the domain model shared by the channel discovery
// pipeline, the persistence layer, and the dashboard API: channel and user
// records, list filters, sentinel errors, and the small interfaces that let
// each subsystem be swapped for a fake in tests.
package crawler
