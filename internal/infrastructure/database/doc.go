// Package database provides SQLite connectivity for the blinksync command journal.
//
// It opens the database with WAL mode and a busy timeout, and applies the
// embedded, additive-only schema migrations from the migrations package:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
