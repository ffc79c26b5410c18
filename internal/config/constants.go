package config

const (
	DefaultDatabasePath = "./libraria.db"
)
