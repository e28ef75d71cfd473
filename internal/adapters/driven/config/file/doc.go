// Package file provides the TOML configuration store.
//
// The file lives at $STACKUP_HOME/config.toml (default ~/.stackup). Tool
// server overrides sit under [services.<name>]; session, history and
// workflow settings under their own tables.
package file
