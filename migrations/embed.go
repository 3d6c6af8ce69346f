// Package migrations holds the postgres schema shared by the auth, catalog
// and order services.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
