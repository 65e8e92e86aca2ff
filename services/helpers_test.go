package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"writ_docket_go/db"
	"writ_docket_go/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	// A single connection serializes the audit goroutines with the request path
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(testDB))
	return testDB
}

func createTestCase(t *testing.T, conn *gorm.DB, email string) *models.Case {
	t.Helper()
	c := &models.Case{
		CaseNumber:           fmt.Sprintf("CRM-%s", uuid.New().String()[:8]),
		CaseDate:             time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Email:                email,
		BranchName:           "Ludhiana",
		WritNumber:           "CRWP-1042",
		WritType:             models.WritTypeBail,
		WritYear:             2024,
		UnderSection:         "302",
		Act:                  "IPC",
		Sections:             []string{"302"},
		PoliceStation:        "Division No. 5",
		PetitionerName:       "Harjit Singh",
		PetitionerFatherName: "Gurdev Singh",
		PetitionerAddress:    "Model Town",
		PetitionerPrayer:     "Grant regular bail",
		Respondents:          []models.Respondent{{Name: "State of Punjab"}},
		InvestigatingOfficers: []models.InvestigatingOfficer{
			{Name: "Balwinder Kaur", Rank: "SI", Posting: "PS Division 5", Contact: 9876543210},
		},
	}
	require.NoError(t, conn.Create(c).Error)
	return c
}

// recordingAudit keeps entries in memory for assertions
type recordingAudit struct {
	entries []AuditEntry
}

func (r *recordingAudit) Record(entry AuditEntry) {
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []models.AuditAction {
	actions := make([]models.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		actions = append(actions, e.Action)
	}
	return actions
}
