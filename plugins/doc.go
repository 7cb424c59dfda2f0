// Package plugins hosts the type behavior subpackages. It contains no
// production runtime code itself; this file anchors the architectural
// guard test that lives alongside the behavior packages.
package plugins
