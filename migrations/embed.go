// Package migrations holds the SQL schema, embedded for startup migration.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
