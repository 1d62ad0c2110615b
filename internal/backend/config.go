package backend

import (
	"errors"
	"fmt"

	"txcat/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	c := Config{
		Driver:       StorageDriver(appConfig.DBDriver),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Export:                   ExportTarget(appConfig.ExportBackend),
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Driver.IsValid() {
		return fmt.Errorf("invalid storage driver: %q", c.Driver)
	}

	switch c.Driver {
	case SQLiteDriver:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite driver")
		}
	case PostgresDriver:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres driver")
		}
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP URL is set")
	}

	if c.Export == "" {
		return nil
	}
	if !c.Export.IsValid() {
		return fmt.Errorf("invalid export backend: %q", c.Export)
	}
	if c.Export == SheetsExport && c.GoogleSpreadsheetID == "" {
		return errors.New("Google Spreadsheet ID is required for sheets export")
	}
	return nil
}
