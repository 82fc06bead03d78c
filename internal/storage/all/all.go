// Package all links every storage backend into the binary.
package all

import (
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage/memory"
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage/mssql"
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage/postgres"
	_ "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage/sqlite"
)
