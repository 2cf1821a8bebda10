package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// classifyTrigger mirrors the Postgres classification trigger closely
// enough for repository tests.
const classifyTrigger = `
CREATE TRIGGER classify_support_transaction AFTER INSERT ON support_transactions
BEGIN
	UPDATE support_transactions
	SET transaction_type = CASE WHEN NEW.calendar_accepted THEN 'soutien' ELSE 'fiscal' END,
	    tax_reduction   = CASE WHEN NEW.calendar_accepted THEN 0 ELSE round(NEW.amount * 0.66, 2) END
	WHERE id = NEW.id;
END;`

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&TourneeModel{},
		&SupportTransactionModel{},
		&DonationIntentModel{},
		&CardPaymentModel{},
		&ReceiptModel{},
		&WebhookLogModel{},
	))
	require.NoError(t, db.Exec(classifyTrigger).Error)
	return db
}

// newMockDatabase creates a Database backed by sqlmock for procedure calls
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true, TranslateError: true})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}
