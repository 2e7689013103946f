// Package database handles the connection to the history database.
//
// It wraps GORM and selects the dialector from the configured driver: MySQL
// for shared deployments and SQLite (a file, or ":memory:" in tests) for a
// single local monitor.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live column set of a table so
// the history feature can report drift between its model and the database.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("History disabled", zap.Error(err))
//	}
//
//	missing, err := database.MissingColumns(db, "inventory_changes", "scope", "kind")
package database
