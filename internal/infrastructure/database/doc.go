// Package database opens the SQLite file that holds servo-switch's switch
// history and applies its schema migrations.
//
// The database is optional: the switch works without it, but
// GET /api/switch/history then answers 503.
//
// Connections use WAL mode and a busy timeout so the history endpoint can
// read while the audit writer inserts. The pool is capped at one
// connection because SQLite has a single writer.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/servoswitch.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package and named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
