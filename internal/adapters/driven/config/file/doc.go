// Package file provides file-based configuration: TOML settings under
// the ragdex config directory and user-editable prompt templates with
// hot reload.
package file
