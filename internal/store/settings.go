package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const signingKeySetting = "jwt_secret"

// SigningKey returns the session signing key, creating and persisting a
// random one on first use. Concurrent first calls agree on a single key.
func SigningKey(ctx context.Context, db DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating signing key: %w", err)
	}
	return settingOrDefault(ctx, db, signingKeySetting, hex.EncodeToString(buf))
}

// settingOrDefault stores value under key unless the key is already set and
// returns whatever is stored afterwards.
func settingOrDefault(ctx context.Context, db DBTX, key, value string) (string, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
		key, value,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}

	var stored string
	if err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&stored); err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return stored, nil
}
