// Package database provides relational store connectivity for SIGPesq Core.
//
// Two engines are supported behind the same *DB:
//   - SQLite (github.com/mattn/go-sqlite3), the default, with WAL mode and
//     foreign keys enforced
//   - PostgreSQL (github.com/jackc/pgx/v5 via database/sql)
//
// Repositories write every query once with ? placeholders. DB and Tx rewrite
// them to $n for PostgreSQL.
//
// Constraint failures are reported through Classify, which reads the drivers'
// typed errors (sqlite3.Error extended codes, pgconn.PgError SQLSTATE) and
// returns an ErrorKind. Callers never match on error text.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/sigpesq.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	fsys, err := migrations.For(string(db.Dialect()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := db.Migrate(ctx, fsys); err != nil {
//	    log.Fatal(err)
//	}
package database
