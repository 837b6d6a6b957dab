package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_GetSetting(t *testing.T) {
	t.Run("returns raw value", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT setting_value FROM system_settings").
			WithArgs("confidence_threshold").
			WillReturnRows(pgxmock.NewRows([]string{"setting_value"}).AddRow([]byte("0.3")))

		repo := &testSettingsRepo{mock: mock}
		value, err := repo.GetSetting(context.Background(), "confidence_threshold")

		require.NoError(t, err)
		assert.Equal(t, json.RawMessage("0.3"), value)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns sentinel for missing key", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT setting_value FROM system_settings").
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		repo := &testSettingsRepo{mock: mock}
		value, err := repo.GetSetting(context.Background(), "nope")

		assert.Nil(t, value)
		assert.ErrorIs(t, err, ErrSettingNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettingsRepository_SetSetting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO system_settings").
		WithArgs("max_matches", json.RawMessage("5"), "cap for fuzzy matches").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := &testSettingsRepo{mock: mock}
	err = repo.SetSetting(context.Background(), "max_matches", json.RawMessage("5"), "cap for fuzzy matches")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_GetAllMappings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"mapping_key", "mapping_value"}).
		AddRow("high", []byte(`["dringend"]`)).
		AddRow("low", []byte(`["irgendwann"]`))

	mock.ExpectQuery("SELECT mapping_key, mapping_value FROM language_mappings").
		WithArgs("priority", "de").
		WillReturnRows(rows)

	repo := &testSettingsRepo{mock: mock}
	mappings, err := repo.GetAllMappings(context.Background(), "priority", "de")

	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, json.RawMessage(`["dringend"]`), mappings["high"])
	require.NoError(t, mock.ExpectationsWereMet())
}

// testSettingsRepo is a test wrapper that uses pgxmock
type testSettingsRepo struct {
	mock pgxmock.PgxPoolIface
}

func (r *testSettingsRepo) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := r.mock.QueryRow(ctx,
		`SELECT setting_value FROM system_settings WHERE setting_key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return value, nil
}

func (r *testSettingsRepo) SetSetting(ctx context.Context, key string, value json.RawMessage, description string) error {
	query := `
		INSERT INTO system_settings (setting_key, setting_value, description, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = $2, updated_at = NOW()
	`
	_, err := r.mock.Exec(ctx, query, key, value, description)
	return err
}

func (r *testSettingsRepo) GetAllMappings(ctx context.Context, mappingType, language string) (map[string]json.RawMessage, error) {
	rows, err := r.mock.Query(ctx, `
		SELECT mapping_key, mapping_value FROM language_mappings
		WHERE mapping_type = $1 AND language = $2 AND is_active = TRUE
	`, mappingType, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		mappings[key] = value
	}
	return mappings, rows.Err()
}
