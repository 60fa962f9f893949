// Package migration holds the schema for every supported driver.
package migration

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
