// Package migrations embeds the SQL schema migrations applied by
// [github.com/MrEthical07/authcore/postgres.Repository.RunMigrations].
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
