// Package migrations embeds the SQL schema for each supported backend.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql in golang-migrate naming.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
