// Package api exposes the HTTP interface: crawl task lifecycle, analytics
// over the latest archived dataset, and system introspection.
package api
