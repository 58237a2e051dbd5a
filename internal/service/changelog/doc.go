// Package changelog gates releases on the human-readable changelog:
// the top entry must name the release version and carry a date before
// anything is tagged or uploaded. Stamping converts the "Unreleased"
// section into a dated release heading.
package changelog
