// Package all links every storage backend into the binary.
package all

import (
	_ "propetl/internal/storage/memory"
	_ "propetl/internal/storage/mssql"
	_ "propetl/internal/storage/postgres"
	_ "propetl/internal/storage/sqlite"
)
