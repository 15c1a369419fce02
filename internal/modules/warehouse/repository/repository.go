package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed sql/get-setting.sql
var getSettingSQL string

//go:embed sql/put-setting.sql
var putSettingSQL string

// Keys of the locally persisted threshold settings.
const (
	KeyTempThreshold  = "tempThreshold"
	KeyHumidThreshold = "humidThreshold"
)

// SettingsRepository is the local key/value store for UI defaults.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	PutSettings(ctx context.Context, kv map[string]string) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) SettingsRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, getSettingSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return v, true, nil
}

// PutSettings upserts all pairs in one transaction.
func (r *repositoryImpl) PutSettings(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for k, v := range kv {
		if k == "" {
			_ = tx.Rollback()
			return errors.New("put setting: empty key")
		}
		if _, err := tx.ExecContext(ctx, putSettingSQL, k, v); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("put setting %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
