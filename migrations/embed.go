// Package migrations embeds the SQL schema migrations so both the API binary
// and the migrate tool carry them.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
