package sqlite

import (
	"fmt"
	"time"

	"github.com/OpenCHAMI/pductl/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const TABLE_NAME = "pductl_outlet_states"

// OutletState is one cached last-known state row for an outlet or
// group on a PDU.
type OutletState struct {
	Host      string    `db:"host" json:"host"`
	Scope     string    `db:"scope" json:"scope"`
	Name      string    `db:"name" json:"name"`
	State     string    `db:"state" json:"state"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

func CreateOutletStatesIfNotExists(path string) (*sqlx.DB, error) {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		host 		TEXT NOT NULL,
		scope 		TEXT NOT NULL,
		name 		TEXT NOT NULL,
		state 		TEXT,
		timestamp 	TIMESTAMP,
		PRIMARY KEY (host, scope, name)
	);
	`, TABLE_NAME)
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	db.MustExec(schema)
	return db, nil
}

func InsertOutletStates(path string, states ...OutletState) error {
	if len(states) == 0 {
		return fmt.Errorf("no states to insert")
	}

	// create database if it doesn't already exist
	db, err := CreateOutletStatesIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx := db.MustBegin()
	sql := fmt.Sprintf(`INSERT OR REPLACE INTO %s (host, scope, name, state, timestamp)
	VALUES (:host, :scope, :name, :state, :timestamp);`, TABLE_NAME)
	for _, state := range states {
		if _, err := tx.NamedExec(sql, &state); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("failed to roll back transaction")
			}
			return fmt.Errorf("failed to execute transaction: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func GetOutletStates(path string) ([]OutletState, error) {
	// check if path exists first to prevent creating the database
	exists, _ := util.PathExists(path)
	if !exists {
		return nil, fmt.Errorf("no cache found at %s", path)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	results := []OutletState{}
	err = db.Select(&results, fmt.Sprintf("SELECT * FROM %s ORDER BY host ASC, scope ASC, name ASC;", TABLE_NAME))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve outlet states: %v", err)
	}
	return results, nil
}

func DeleteOutletStates(path string, hosts ...string) error {
	if len(hosts) == 0 {
		return fmt.Errorf("no hosts given")
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	tx := db.MustBegin()
	for _, host := range hosts {
		if host == "" {
			continue
		}
		sql := fmt.Sprintf("DELETE FROM %s WHERE host=?;", TABLE_NAME)
		if _, err := tx.Exec(sql, host); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("failed to roll back transaction")
			}
			return fmt.Errorf("failed to execute DELETE transaction: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}
