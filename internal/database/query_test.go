package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-dashboard/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestQueryReturnsRowsInOrder(t *testing.T) {
	db := openTestDB(t)

	tenant := models.Tenant{Name: "Acme"}
	require.NoError(t, db.Create(&tenant).Error)

	for _, phone := range []string{"111", "222", "333"} {
		require.NoError(t, db.Create(&models.Contact{
			TenantID: tenant.ID,
			Phone:    phone,
			Source:   "manual",
		}).Error)
	}

	rows, err := Query(db, "SELECT phone FROM contacts WHERE tenant_id = ? ORDER BY phone DESC", tenant.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "333", rows[0]["phone"])
	assert.Equal(t, "222", rows[1]["phone"])
	assert.Equal(t, "111", rows[2]["phone"])
}

func TestQueryOneReturnsNilOnNoRows(t *testing.T) {
	db := openTestDB(t)

	row, err := QueryOne(db, "SELECT * FROM contacts WHERE phone = ?", "nope")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestQueryOneReturnsFirstRow(t *testing.T) {
	db := openTestDB(t)

	tenant := models.Tenant{Name: "Acme"}
	require.NoError(t, db.Create(&tenant).Error)
	require.NoError(t, db.Create(&models.Contact{TenantID: tenant.ID, Phone: "555", Name: "Ada"}).Error)

	row, err := QueryOne(db, "SELECT name FROM contacts WHERE tenant_id = ?", tenant.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Ada", row["name"])
}

func TestQueryParametersAreNotInterpolated(t *testing.T) {
	db := openTestDB(t)

	tenant := models.Tenant{Name: "Acme"}
	require.NoError(t, db.Create(&tenant).Error)
	require.NoError(t, db.Create(&models.Contact{TenantID: tenant.ID, Phone: "555"}).Error)

	// A hostile value must be treated as data, not SQL.
	rows, err := Query(db, "SELECT * FROM contacts WHERE phone = ?", "' OR '1'='1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueryWrapsDriverErrors(t *testing.T) {
	db := openTestDB(t)

	_, err := Query(db, "SELECT * FROM not_a_table")
	require.Error(t, err)

	var dbErr *Error
	require.ErrorAs(t, err, &dbErr)
	assert.Contains(t, dbErr.Error(), "database error")
}
