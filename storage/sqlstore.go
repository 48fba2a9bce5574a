package storage

import (
	"database/sql"
	"sort"

	"factdb/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLStore realizes Store as a single table in a SQLite database,
// demonstrating that the namespaced KV contract is backend-agnostic: the
// same nodes/refs/schema layout that FileStore lays out as directories and
// files here becomes rows keyed by (namespace, name).
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (creating if necessary) a SQLite-backed Store at path.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrapIO(err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	name      TEXT NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, name)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrapIO(err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Add(k Key, v []byte) error {
	exists, err := s.HasKey(k)
	if err != nil {
		return err
	}
	if exists {
		return models.ErrAlreadyExists
	}
	_, err = s.db.Exec(`INSERT INTO kv (namespace, name, value) VALUES (?, ?, ?)`,
		k.NS.String(), k.Name, v)
	if err != nil {
		return wrapIO(err)
	}
	return nil
}

func (s *SQLStore) Overwrite(k Key, v []byte) error {
	res, err := s.db.Exec(`UPDATE kv SET value = ? WHERE namespace = ? AND name = ?`,
		v, k.NS.String(), k.Name)
	if err != nil {
		return wrapIO(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapIO(err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLStore) Load(k Key) ([]byte, bool, error) {
	row := s.db.QueryRow(`SELECT value FROM kv WHERE namespace = ? AND name = ?`, k.NS.String(), k.Name)
	var v []byte
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapIO(err)
	}
	return v, true, nil
}

func (s *SQLStore) HasKey(k Key) (bool, error) {
	row := s.db.QueryRow(`SELECT 1 FROM kv WHERE namespace = ? AND name = ?`, k.NS.String(), k.Name)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, wrapIO(err)
	}
	return true, nil
}

func (s *SQLStore) Keys(ns Namespace) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM kv WHERE namespace = ?`, ns.String())
	if err != nil {
		return nil, wrapIO(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapIO(err)
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// SubNamespaces lists the immediate child segment of every distinct
// namespace that has ns as a prefix. SQLStore keeps namespaces as flat
// "/"-joined strings, so this is computed in Go rather than in SQL.
func (s *SQLStore) SubNamespaces(ns Namespace) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT namespace FROM kv`)
	if err != nil {
		return nil, wrapIO(err)
	}
	defer rows.Close()

	prefix := ns.String()
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	for rows.Next() {
		var namespace string
		if err := rows.Scan(&namespace); err != nil {
			return nil, wrapIO(err)
		}
		if !hasPrefix(namespace, prefix) {
			continue
		}
		rest := namespace[len(prefix):]
		if idx := indexOf(rest, '/'); idx != -1 {
			seen[rest[:idx]] = true
		} else if rest != "" {
			seen[rest] = true
		}
	}
	return sortedKeys(seen), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
