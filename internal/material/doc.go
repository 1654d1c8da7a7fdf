// Package material scaffolds a project from a registry-hosted template.
//
// A material is an ordinary registry package whose template lives in its
// material/ directory. Materials are cached under <cliHome>/material and
// copied into the target directory on demand.
package material
