package config

// DB holds the database configuration settings.
type DB struct {
	Engine   string // sqlite (default), mysql or postgres
	Path     string // database file path, sqlite only
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}
