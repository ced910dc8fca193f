package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TriageRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  TriageRepository
	sqlDB *sql.DB
}

func TestTriageRepositorySuite(t *testing.T) {
	suite.Run(t, new(TriageRepositoryTestSuite))
}

func (s *TriageRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewTriageRepository(s.db)
}

func (s *TriageRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

func newRecord(status entity.TriageStatus) *entity.TriageRecord {
	return &entity.TriageRecord{
		OrderID:      "order-1",
		UserID:       "cust-1",
		OrderType:    "cart",
		PharmacyName: "Nile Pharmacy",
		TotalPrice:   85,
		ItemsCount:   2,
		Status:       status,
		OrderedAt:    time.Now().Add(-time.Hour),
	}
}

var triageColumns = []string{
	"order_id", "user_id", "order_type", "pharmacy_id", "pharmacy_name",
	"total_price", "items_count", "status", "ordered_at", "created_at", "updated_at",
}

// ===================== Insert Tests =====================

func (s *TriageRepositoryTestSuite) TestInsert_Created() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "order_triage"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	created, err := s.repo.Insert(ctx, newRecord(entity.TriageNeeded))

	// Assert
	s.NoError(err)
	s.True(created)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TriageRepositoryTestSuite) TestInsert_DuplicateIsNoop() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("order_id") DO NOTHING`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	// Act
	created, err := s.repo.Insert(ctx, newRecord(entity.TriageRouted))

	// Assert
	s.NoError(err)
	s.False(created)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TriageRepositoryTestSuite) TestInsert_DBError() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "order_triage"`)).
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	// Act
	created, err := s.repo.Insert(ctx, newRecord(entity.TriageNeeded))

	// Assert
	s.Error(err)
	s.False(created)
	s.Contains(err.Error(), "failed to insert triage record")
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== GetByOrderID Tests =====================

func (s *TriageRepositoryTestSuite) TestGetByOrderID_Success() {
	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows(triageColumns).
		AddRow("order-1", "cust-1", "cart", "ph-1", "Nile Pharmacy", 85.0, 2, "routed", now, now, now)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_triage" WHERE order_id = $1`)).
		WillReturnRows(rows)

	// Act
	record, err := s.repo.GetByOrderID(ctx, "order-1")

	// Assert
	s.NoError(err)
	s.Equal("ph-1", record.PharmacyID)
	s.Equal(entity.TriageRouted, record.Status)
	s.Equal(85.0, record.TotalPrice)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TriageRepositoryTestSuite) TestGetByOrderID_NotFound() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_triage" WHERE order_id = $1`)).
		WillReturnRows(sqlmock.NewRows(triageColumns))

	// Act
	record, err := s.repo.GetByOrderID(ctx, "missing")

	// Assert
	s.ErrorIs(err, ErrRecordNotFound)
	s.Nil(record)
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== ListByStatus Tests =====================

func (s *TriageRepositoryTestSuite) TestListByStatus_Success() {
	ctx := context.Background()
	now := time.Now()

	rows := sqlmock.NewRows(triageColumns).
		AddRow("order-1", "cust-1", "cart", "", "Unknown", 40.0, 1, "needs_triage", now.Add(-2*time.Hour), now, now).
		AddRow("order-2", "cust-2", "direct", "", "Gone", 75.0, 1, "escalated", now.Add(-time.Hour), now, now)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_triage" WHERE status IN ($1,$2) ORDER BY ordered_at`)).
		WillReturnRows(rows)

	// Act
	records, err := s.repo.ListByStatus(ctx, []entity.TriageStatus{entity.TriageNeeded, entity.TriageEscalated}, 50)

	// Assert
	s.NoError(err)
	s.Len(records, 2)
	s.Equal("order-1", records[0].OrderID)
	s.Equal(entity.TriageEscalated, records[1].Status)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TriageRepositoryTestSuite) TestListByStatus_DBError() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_triage"`)).
		WillReturnError(sql.ErrConnDone)

	// Act
	records, err := s.repo.ListByStatus(ctx, []entity.TriageStatus{entity.TriageNeeded}, 0)

	// Assert
	s.Error(err)
	s.Nil(records)
	s.Contains(err.Error(), "failed to list triage records")
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== EscalateStale Tests =====================

func (s *TriageRepositoryTestSuite) TestEscalateStale_Success() {
	ctx := context.Background()
	before := time.Now().Add(-2 * time.Hour)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_triage" SET`)).
		WithArgs(entity.TriageEscalated, sqlmock.AnyArg(), entity.TriageNeeded, before).
		WillReturnResult(sqlmock.NewResult(0, 3))
	s.mock.ExpectCommit()

	// Act
	n, err := s.repo.EscalateStale(ctx, before)

	// Assert
	s.NoError(err)
	s.Equal(int64(3), n)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TriageRepositoryTestSuite) TestEscalateStale_DBError() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_triage" SET`)).
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	// Act
	n, err := s.repo.EscalateStale(ctx, time.Now())

	// Assert
	s.Error(err)
	s.Zero(n)
	s.Contains(err.Error(), "failed to escalate")
	s.NoError(s.mock.ExpectationsWereMet())
}
