// Package manifest reads an installed package's package.json and locates the
// entry file it declares. The fields the CLI depends on are checked against
// an embedded JSON schema before use.
package manifest
