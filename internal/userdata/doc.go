// Package userdata manages the CLI home directory (~/.devlink-cli/ by default):
// resolving its location from the environment, laying out the dependencies and
// material caches beneath it with the right permissions, and the health check
// used by `devlink doctor`.
package userdata
