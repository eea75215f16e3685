package store

import (
	"database/sql"
	"errors"
	"strconv"
)

// GetConfig returns the value for key, or def when the key is absent.
func (s *Store) GetConfig(key, def string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", mapErr("failed to get config", err)
	}
	return value, nil
}

// SetConfig writes a key/value pair, replacing any existing value. The
// write is durable and visible to subsequent reads immediately.
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return mapErr("failed to set config", err)
	}
	return nil
}

// AllConfig returns every config pair.
func (s *Store) AllConfig() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM config ORDER BY key`)
	if err != nil {
		return nil, mapErr("failed to list config", err)
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, mapErr("failed to scan config", err)
		}
		config[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("failed to list config", err)
	}
	return config, nil
}

// ConfigInt reads an integer config value, falling back to def when the
// key is absent or malformed.
func (s *Store) ConfigInt(key string, def int) (int, error) {
	raw, err := s.GetConfig(key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, nil
	}
	return v, nil
}

// ConfigFloat reads a float config value, falling back to def when the
// key is absent or malformed.
func (s *Store) ConfigFloat(key string, def float64) (float64, error) {
	raw, err := s.GetConfig(key, strconv.FormatFloat(def, 'f', -1, 64))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, nil
	}
	return v, nil
}
