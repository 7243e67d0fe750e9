// Package hintstore is a SQLite-backed cache of MEV-share-style event
// hints, keyed by the transaction hash they were attached to.
//
// Grounded on internal/storage/cache.go (WAL mode, INSERT OR REPLACE
// upserts) and internal/backtest/mempool.go (WAL on open, batch insert
// inside one transaction). Unlike both of those, the schema is embedded as
// a constant and created on open — mempool.go expects its table to exist
// already, and the teacher's os.ReadFile("internal/storage/schema.sql")
// breaks the moment the binary isn't run from the repo root.
package hintstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quaydex/backrun-engine/internal/decode"
)

const schema = `
CREATE TABLE IF NOT EXISTS event_hints (
	tx_hash      TEXT NOT NULL,
	log_index    INTEGER NOT NULL,
	address      TEXT NOT NULL,
	topic0       TEXT NOT NULL,
	block_number INTEGER NOT NULL,
	PRIMARY KEY (tx_hash, log_index)
);
CREATE INDEX IF NOT EXISTS idx_event_hints_block ON event_hints(block_number);
`

// Store is a durable cache of EventHistory, one row per hinted log.
type Store struct {
	db *sql.DB
}

// Open creates the database (and its parent directory) if it doesn't
// already exist, enables WAL mode for concurrent readers, and ensures the
// schema is present.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("hintstore: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("hintstore: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("hintstore: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("hintstore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// PutHints replaces the hint set for a transaction with logs, one row per
// entry, inside a single transaction.
func (s *Store) PutHints(txHash common.Hash, blockNumber uint64, logs []decode.HintLog) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("hintstore: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM event_hints WHERE tx_hash = ?", txHash.Hex()); err != nil {
		return fmt.Errorf("hintstore: clear existing hints: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO event_hints (tx_hash, log_index, address, topic0, block_number)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("hintstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range logs {
		topic0 := common.Hash{}
		if len(l.Topics) > 0 {
			topic0 = l.Topics[0]
		}
		if _, err := stmt.Exec(txHash.Hex(), i, l.Address.Hex(), topic0.Hex(), blockNumber); err != nil {
			return fmt.Errorf("hintstore: insert hint %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetHints loads the hint set previously stored for txHash. A tx with no
// stored hints returns an empty EventHistory, not an error.
func (s *Store) GetHints(txHash common.Hash) (*decode.EventHistory, error) {
	rows, err := s.db.Query(`
		SELECT address, topic0 FROM event_hints
		WHERE tx_hash = ?
		ORDER BY log_index ASC
	`, txHash.Hex())
	if err != nil {
		return nil, fmt.Errorf("hintstore: query hints: %w", err)
	}
	defer rows.Close()

	hist := &decode.EventHistory{}
	for rows.Next() {
		var addrHex, topicHex string
		if err := rows.Scan(&addrHex, &topicHex); err != nil {
			return nil, fmt.Errorf("hintstore: scan hint row: %w", err)
		}
		hist.Logs = append(hist.Logs, decode.HintLog{
			Address: common.HexToAddress(addrHex),
			Topics:  []common.Hash{common.HexToHash(topicHex)},
		})
	}
	return hist, rows.Err()
}

// BlocksWithHints returns every distinct block number that has at least
// one stored hint, ascending.
func (s *Store) BlocksWithHints() ([]uint64, error) {
	rows, err := s.db.Query("SELECT DISTINCT block_number FROM event_hints ORDER BY block_number ASC")
	if err != nil {
		return nil, fmt.Errorf("hintstore: query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []uint64
	for rows.Next() {
		var b uint64
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
