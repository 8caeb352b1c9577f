// Package catalog is the template store. It loads template descriptors from
// prioritized sources (the embedded built-in set, user directories, and a
// git-synced remote catalog) and serves them read-only for a generation run.
package catalog
