// Package plugins hosts storage backend plugin subpackages. It intentionally
// contains no production runtime code itself; this file exists to satisfy
// tooling for the architectural guard test that lives alongside it.
//
// Each subpackage (dropbox, github, googledrive) ships a storageapi.Plugin
// that registers a driver opener and, where the backend imposes policies of
// its own, catalog rules. Plugins depend exclusively on pkg/storageapi.
package plugins
