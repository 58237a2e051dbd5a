// Package release drives the whole pipeline from preflight checks to
// clean-room verification of the uploaded artifact.
package release
