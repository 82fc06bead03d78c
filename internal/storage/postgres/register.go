package postgres

import "github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"

func init() {
	storage.Register("postgres", New)
}
