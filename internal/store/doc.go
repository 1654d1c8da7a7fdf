// Package store owns the on-disk package cache.
//
// Each package lives at <storePath>/<name>/ and counts as installed only once
// its completion marker (.devlink-install.json) is present. Installs are
// assembled in <storePath>/.staging/ and swapped into place whole, so an
// interrupted install never produces a directory with a marker.
package store
