package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE inventory_changes (id INTEGER PRIMARY KEY, scope TEXT NOT NULL, item_id INTEGER)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "inventory_changes")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	byName := make(map[string]ColumnInfo)
	for _, col := range columns {
		byName[col.Field] = col
	}
	assert.Equal(t, "integer", byName["id"].Type)
	assert.Equal(t, "PRI", byName["id"].Key)
	assert.Equal(t, "NO", byName["scope"].Null)
	assert.Equal(t, "YES", byName["item_id"].Null)

	// sqlite reports an unknown table as having no columns.
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMissingColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE inventory_changes (id INTEGER, scope TEXT)").Error)

	missing, err := MissingColumns(db, "inventory_changes", "id", "Scope", "kind", "batch_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"batch_id", "kind"}, missing)
}

func TestGetTableColumns_MySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("ID", "BIGINT UNSIGNED", "NO", "PRI", nil, "auto_increment").
		AddRow("Scope", "VARCHAR(64)", "NO", "", nil, "")
	mock.ExpectQuery("SHOW COLUMNS FROM `inventory_changes`").WillReturnRows(rows)

	columns, err := GetTableColumns(db, "inventory_changes")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "id", columns[0].Field)
	assert.Equal(t, "bigint unsigned", columns[0].Type)
	assert.Equal(t, "varchar(64)", columns[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
