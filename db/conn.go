package db

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// New opens the record store selected by database.type
func New(ctx context.Context) (RecordStore, error) {
	switch t := viper.GetString("database.type"); t {
	case "mongo":
		s, err := NewMongo(ctx,
			viper.GetString("database.uri"),
			viper.GetString("database.name"),
			viper.GetString("database.collection"),
		)
		if err != nil {
			return nil, err
		}

		zap.L().Info("MongoDB connected successfully", zap.String("database", viper.GetString("database.name")))
		return s, nil
	case "sqlite":
		dsn := viper.GetString("database.dsn")

		// Inside a container the database file has to be mounted by the host
		if _, err := os.Stat("/.dockerenv"); err == nil {
			if _, err := os.Stat(dsn); err != nil {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to %s", dsn)
			}
		}

		return NewSQL(t, dsn)
	case "postgres":
		return NewSQL(t, viper.GetString("database.dsn"))
	default:
		return nil, fmt.Errorf("invalid database type %q", t)
	}
}
