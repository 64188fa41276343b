// Package file persists agent settings to a TOML file under the sercha-sync
// home directory.
package file
