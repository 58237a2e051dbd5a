// Package check runs the preflight checks that gate a release.
package check
