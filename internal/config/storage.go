package config

type Storage struct {
	SQLite *SQLiteStorage `mapstructure:"local,omitempty"`
}

type SQLiteStorage struct {
	Path string `mapstructure:"path,omitempty"`
}
