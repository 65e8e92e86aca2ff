package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"writ_docket_go/models"
)

type recordingNotifier struct {
	changes []StatusChange
}

func (n *recordingNotifier) NotifyStatusChange(change StatusChange) error {
	n.changes = append(n.changes, change)
	return nil
}

func argumentPayload(caseID string, draft bool) *ProceedingPayload {
	payload, err := DecodeProceedingPayload([]byte(fmt.Sprintf(`{"case":%q,"type":"ARGUMENT","draft":%t,
		"hearingDetails":{"dateOfHearing":"2024-05-02","judgeName":"J. Sharma","courtNumber":"12"},
		"argumentDetails":{"argumentBy":"AAG","argumentWith":"Counsel","nextDateOfHearing":"2024-06-01"}}`, caseID, draft)))
	if err != nil {
		panic(err)
	}
	return payload
}

func decisionPayload(caseID, status string, draft bool) *ProceedingPayload {
	payload, err := DecodeProceedingPayload([]byte(fmt.Sprintf(`{"case":%q,"type":"DECISION","draft":%t,
		"hearingDetails":{"dateOfHearing":"2024-07-10"},
		"decisionDetails":[{"writStatus":%q,"decisionByCourt":"Bail granted"}]}`, caseID, draft, status)))
	if err != nil {
		panic(err)
	}
	return payload
}

func finalizedSequences(t *testing.T, proceedings []models.Proceeding) []int {
	t.Helper()
	var seqs []int
	for _, p := range proceedings {
		if !p.Draft {
			seqs = append(seqs, p.Sequence)
		}
	}
	return seqs
}

func TestCreateProceeding(t *testing.T) {
	ctx := context.Background()
	owner := Caller{Email: "clerk@example.com", Role: "USER"}

	t.Run("finalized proceedings are numbered in order", func(t *testing.T) {
		db := setupTestDB(t)
		audit := &recordingAudit{}
		deps := &Deps{Audit: audit}
		c := createTestCase(t, db, owner.Email)

		for i := 1; i <= 3; i++ {
			p, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
			require.NoError(t, err)
			assert.Equal(t, i, p.Sequence)
			assert.Equal(t, c.Email, p.Email)
			require.NotNil(t, p.NextHearingDate)
		}
		assert.Equal(t, []models.AuditAction{
			models.AuditActionCreateProceeding,
			models.AuditActionCreateProceeding,
			models.AuditActionCreateProceeding,
		}, audit.actions())
	})

	t.Run("draft is upserted in place", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)

		first, err := CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, true))
		require.NoError(t, err)
		assert.Equal(t, models.DraftSequence, first.Sequence)

		payload := argumentPayload(c.ID, true)
		payload.Summary = "Revised"
		second, err := CreateProceeding(ctx, db, nil, owner, payload)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		db.Model(&models.Proceeding{}).Where("case_id = ? AND draft = ?", c.ID, true).Count(&count)
		assert.Equal(t, int64(1), count)

		draft, err := FindDraftByCase(db, owner, c.ID)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, "Revised", draft.Summary)
	})

	t.Run("finalizing replaces the draft", func(t *testing.T) {
		db := setupTestDB(t)
		audit := &recordingAudit{}
		deps := &Deps{Audit: audit}
		c := createTestCase(t, db, owner.Email)

		_, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
		require.NoError(t, err)
		draft, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, true))
		require.NoError(t, err)

		final, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
		require.NoError(t, err)
		assert.NotEqual(t, draft.ID, final.ID)
		assert.Equal(t, 2, final.Sequence)

		remaining, err := FindDraftByCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Nil(t, remaining)
		assert.Equal(t, models.AuditActionFinalizeProceeding, audit.actions()[2])
	})

	t.Run("other users are denied", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)

		_, err := CreateProceeding(ctx, db, nil, Caller{Email: "other@example.com"}, argumentPayload(c.ID, false))
		assert.ErrorIs(t, err, ErrNotFoundOrDenied)

		var count int64
		db.Model(&models.Proceeding{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("admin files on behalf of the owner", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)

		p, err := CreateProceeding(ctx, db, nil, Caller{Email: "admin@example.com", Role: "admin"}, argumentPayload(c.ID, false))
		require.NoError(t, err)
		assert.Equal(t, owner.Email, p.Email)
		assert.Equal(t, "admin@example.com", p.CreatedBy)
	})

	t.Run("concurrent creation leaves no gaps", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)
		deps := &Deps{Locker: NewLocalCaseLocker()}

		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		list, err := ListProceedingsByCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, finalizedSequences(t, list))
	})
}

func TestStatusPropagation(t *testing.T) {
	ctx := context.Background()
	owner := Caller{Email: "clerk@example.com"}

	t.Run("finalized decision updates the case", func(t *testing.T) {
		db := setupTestDB(t)
		audit := &recordingAudit{}
		notifier := &recordingNotifier{}
		deps := &Deps{Audit: audit, Notifier: notifier}
		c := createTestCase(t, db, owner.Email)

		_, err := CreateProceeding(ctx, db, deps, owner, decisionPayload(c.ID, "ALLOWED", false))
		require.NoError(t, err)

		updated, err := GetCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusAllowed, updated.Status)

		require.Len(t, notifier.changes, 1)
		assert.Equal(t, models.WritStatusPending, notifier.changes[0].From)
		assert.Equal(t, models.WritStatusAllowed, notifier.changes[0].To)
		assert.Contains(t, audit.actions(), models.AuditActionUpdateCaseStatus)
	})

	t.Run("draft decision leaves the case alone", func(t *testing.T) {
		db := setupTestDB(t)
		notifier := &recordingNotifier{}
		c := createTestCase(t, db, owner.Email)

		_, err := CreateProceeding(ctx, db, &Deps{Notifier: notifier}, owner, decisionPayload(c.ID, "DISMISSED", true))
		require.NoError(t, err)

		unchanged, err := GetCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusPending, unchanged.Status)
		assert.Empty(t, notifier.changes)
	})

	t.Run("same status is not a change", func(t *testing.T) {
		db := setupTestDB(t)
		notifier := &recordingNotifier{}
		c := createTestCase(t, db, owner.Email)

		_, err := CreateProceeding(ctx, db, &Deps{Notifier: notifier}, owner, decisionPayload(c.ID, "PENDING", false))
		require.NoError(t, err)
		assert.Empty(t, notifier.changes)
	})

	t.Run("notice of motion leaves the case alone", func(t *testing.T) {
		db := setupTestDB(t)
		notifier := &recordingNotifier{}
		c := createTestCase(t, db, owner.Email)
		require.NoError(t, db.Model(c).Update("status", models.WritStatusDirection).Error)

		payload, err := DecodeProceedingPayload([]byte(fmt.Sprintf(`{"case":%q,"type":"NOTICE_OF_MOTION",
			"hearingDetails":{"dateOfHearing":"2024-05-02"},
			"noticeOfMotion":{"attendanceMode":"BY_PERSON","details":"Present","appearingAGDetails":"DAG Kaur",
			"attendingOfficerDetails":"SI Singh","investigatingOfficer":{"name":"SI Singh"}}}`, c.ID)))
		require.NoError(t, err)
		p, err := CreateProceeding(ctx, db, &Deps{Notifier: notifier}, owner, payload)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Sequence)

		unchanged, err := GetCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusDirection, unchanged.Status)
		assert.Empty(t, notifier.changes)
	})

	t.Run("failed status write rolls back the proceeding", func(t *testing.T) {
		db := setupTestDB(t)
		audit := &recordingAudit{}
		notifier := &recordingNotifier{}
		c := createTestCase(t, db, owner.Email)

		require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_case_status", func(tx *gorm.DB) {
			if tx.Statement.Table == "cases" {
				tx.AddError(errors.New("case status write failed"))
			}
		}))

		_, err := CreateProceeding(ctx, db, &Deps{Audit: audit, Notifier: notifier}, owner, decisionPayload(c.ID, "ALLOWED", false))
		require.Error(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Proceeding{}).Where("case_id = ?", c.ID).Count(&count).Error)
		assert.Zero(t, count)

		unchanged, err := GetCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusPending, unchanged.Status)
		assert.Empty(t, audit.entries)
		assert.Empty(t, notifier.changes)
	})

	t.Run("invalid outcome rolls back the proceeding", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)

		payload := decisionPayload(c.ID, "ALLOWED", false)
		payload.DecisionDetails[0].WritStatus = "CLOSED"
		_, err := CreateProceeding(ctx, db, nil, owner, payload)
		require.Error(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Proceeding{}).Where("case_id = ?", c.ID).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("latest entry wins", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)

		payload, err := DecodeProceedingPayload([]byte(fmt.Sprintf(`{"case":%q,"type":"DECISION",
			"hearingDetails":{"dateOfHearing":"2024-07-10"},
			"decisionDetails":[{"writStatus":"DIRECTION"},{"writStatus":"WITHDRAWN"}]}`, c.ID)))
		require.NoError(t, err)
		_, err = CreateProceeding(ctx, db, nil, owner, payload)
		require.NoError(t, err)

		updated, err := GetCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusWithdrawn, updated.Status)
	})
}

func TestUpdateProceeding(t *testing.T) {
	ctx := context.Background()
	owner := Caller{Email: "clerk@example.com"}

	t.Run("finalized proceeding is updated in place", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)
		p, err := CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, false))
		require.NoError(t, err)

		payload := argumentPayload(c.ID, false)
		payload.Summary = "Arguments concluded"
		updated, err := UpdateProceeding(ctx, db, nil, owner, p.ID, payload)
		require.NoError(t, err)
		assert.Equal(t, p.ID, updated.ID)
		assert.Equal(t, 1, updated.Sequence)

		reloaded, err := GetProceeding(db, owner, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Arguments concluded", reloaded.Summary)
		assert.Equal(t, 1, reloaded.Payload.Len())
	})

	t.Run("finalizing a draft renumbers it", func(t *testing.T) {
		db := setupTestDB(t)
		audit := &recordingAudit{}
		deps := &Deps{Audit: audit}
		c := createTestCase(t, db, owner.Email)

		_, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
		require.NoError(t, err)
		draft, err := CreateProceeding(ctx, db, deps, owner, decisionPayload(c.ID, "DISMISSED", true))
		require.NoError(t, err)

		final, err := UpdateProceeding(ctx, db, deps, owner, draft.ID, decisionPayload(c.ID, "DISMISSED", false))
		require.NoError(t, err)
		assert.NotEqual(t, draft.ID, final.ID)
		assert.Equal(t, 2, final.Sequence)
		assert.False(t, final.Draft)

		_, err = GetProceeding(db, owner, draft.ID)
		assert.ErrorIs(t, err, ErrNotFoundOrDenied)

		updated, err := GetCase(db, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WritStatusDismissed, updated.Status)
		assert.Contains(t, audit.actions(), models.AuditActionFinalizeProceeding)
	})

	t.Run("immutable fields", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)
		p, err := CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, false))
		require.NoError(t, err)

		_, err = UpdateProceeding(ctx, db, nil, owner, p.ID, decisionPayload(c.ID, "ALLOWED", true))
		require.Error(t, err)
		assert.ElementsMatch(t, []string{"type", "draft"}, fieldNames(err))
	})

	t.Run("other users are denied", func(t *testing.T) {
		db := setupTestDB(t)
		c := createTestCase(t, db, owner.Email)
		p, err := CreateProceeding(ctx, db, nil, owner, argumentPayload(c.ID, false))
		require.NoError(t, err)

		_, err = UpdateProceeding(ctx, db, nil, Caller{Email: "other@example.com"}, p.ID, argumentPayload(c.ID, false))
		assert.ErrorIs(t, err, ErrNotFoundOrDenied)
	})
}

func TestListAndDeleteProceedings(t *testing.T) {
	ctx := context.Background()
	owner := Caller{Email: "clerk@example.com"}
	db := setupTestDB(t)
	audit := &recordingAudit{}
	deps := &Deps{Audit: audit}
	c := createTestCase(t, db, owner.Email)

	first, err := CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
	require.NoError(t, err)
	_, err = CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, true))
	require.NoError(t, err)
	_, err = CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, false))
	require.NoError(t, err)
	_, err = CreateProceeding(ctx, db, deps, owner, argumentPayload(c.ID, true))
	require.NoError(t, err)

	list, err := ListProceedingsByCase(db, owner, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2}, finalizedSequences(t, list))
	assert.True(t, list[2].Draft)

	require.NoError(t, DeleteProceeding(db, deps, owner, first.ID))
	assert.ErrorIs(t, DeleteProceeding(db, deps, owner, first.ID), ErrNotFoundOrDenied)

	list, err = ListProceedingsByCase(db, owner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, finalizedSequences(t, list))

	_, err = ListProceedingsByCase(db, Caller{Email: "other@example.com"}, c.ID)
	assert.ErrorIs(t, err, ErrNotFoundOrDenied)
	assert.Equal(t, models.AuditActionDeleteProceeding, audit.actions()[len(audit.actions())-1])
}

func TestListProceedings(t *testing.T) {
	ctx := context.Background()
	owner := Caller{Email: "clerk@example.com"}
	other := Caller{Email: "other@example.com"}
	admin := Caller{Email: "admin@example.com", Role: RoleAdmin}
	db := setupTestDB(t)

	mine := createTestCase(t, db, owner.Email)
	theirs := createTestCase(t, db, other.Email)
	for _, payload := range []*ProceedingPayload{
		argumentPayload(mine.ID, false),
		decisionPayload(mine.ID, "ALLOWED", false),
		argumentPayload(mine.ID, true),
	} {
		_, err := CreateProceeding(ctx, db, nil, owner, payload)
		require.NoError(t, err)
	}
	_, err := CreateProceeding(ctx, db, nil, other, argumentPayload(theirs.ID, false))
	require.NoError(t, err)

	draft := true
	finalized := false
	tests := []struct {
		name    string
		caller  Caller
		filters ProceedingFilters
		want    int64
	}{
		{"owner sees own cases", owner, ProceedingFilters{}, 3},
		{"other owner", other, ProceedingFilters{}, 1},
		{"admin sees all", admin, ProceedingFilters{}, 4},
		{"by type", owner, ProceedingFilters{Type: "decision"}, 1},
		{"drafts only", owner, ProceedingFilters{Draft: &draft}, 1},
		{"finalized only", owner, ProceedingFilters{Draft: &finalized}, 2},
		{"by case", admin, ProceedingFilters{CaseID: theirs.ID}, 1},
		{"case of someone else", owner, ProceedingFilters{CaseID: theirs.ID}, 0},
		{"anonymous", Caller{}, ProceedingFilters{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ListProceedings(db, tt.caller, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, list.Total)
			assert.Len(t, list.Proceedings, int(tt.want))
		})
	}

	t.Run("paging", func(t *testing.T) {
		list, err := ListProceedings(db, admin, ProceedingFilters{Page: 2, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), list.Total)
		assert.Len(t, list.Proceedings, 1)
		assert.Equal(t, 2, list.Page)
	})
}
