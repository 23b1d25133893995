// Package appfs holds the files embedded into the binaries.
package appfs

import "embed"

//go:embed all:assets migrations
var FS embed.FS
