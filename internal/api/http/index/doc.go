// Package index exposes the package-index HTTP API: project listings,
// artifact and manifest transfer, and retention pruning. The transport is
// a thin layer over the Service interface so the business logic stays
// testable without a listener.
package index
