// Package migrations holds the embedded schema files for both backends
// and the runners that apply them in filename order.
package migrations

import "embed"

//go:embed postgres/*.sql
var PostgresFS embed.FS

//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
