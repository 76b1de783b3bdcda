// Package config loads, validates, and derives the spark worker configuration.
//
// A worker is described by a small JSON (or TOML) document, by default
// /etc/laniakea/spark.json. Load applies defaults, rejects documents missing
// any essential entry, reads the host identity files, and derives everything
// downstream code needs: the deterministic client UUID, certificate paths,
// workspace and job log directories, and the list of supported
// architectures.
//
// The returned Config is read-only. Always obtain settings through this
// package so the daemon, the command runner, and the CLI agree on paths and
// identity.
package config
