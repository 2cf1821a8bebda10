// Package migrations embeds the SQL migrations so the server and the
// migrate tool can apply them without a checkout on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
