package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"writ_docket_go/models"
)

// UpcomingHearingWindow is how far ahead the dashboard looks for hearings
const UpcomingHearingWindow = 7 * 24 * time.Hour

// BranchCount is the number of cases filed at one branch
type BranchCount struct {
	Branch string `json:"branch"`
	Count  int64  `json:"count"`
}

// UpcomingHearing is a case with a next hearing inside the window
type UpcomingHearing struct {
	CaseID       string    `json:"caseId"`
	CaseNumber   string    `json:"caseNumber"`
	BranchName   string    `json:"branchName"`
	ProceedingID string    `json:"proceedingId"`
	HearingDate  time.Time `json:"hearingDate"`
}

// DashboardSummary aggregates the cases visible to a caller
type DashboardSummary struct {
	TotalCases       int64             `json:"totalCases"`
	ByStatus         map[string]int64  `json:"byStatus"`
	ByBranch         []BranchCount     `json:"byBranch"`
	UpcomingHearings []UpcomingHearing `json:"upcomingHearings"`
}

// GetDashboardSummary counts cases by status and branch and lists the next
// hearings scheduled between now and the end of the window.
func GetDashboardSummary(db *gorm.DB, caller Caller, now time.Time) (*DashboardSummary, error) {
	summary := &DashboardSummary{
		ByStatus:         make(map[string]int64),
		ByBranch:         []BranchCount{},
		UpcomingHearings: []UpcomingHearing{},
	}
	for _, s := range models.WritStatuses() {
		summary.ByStatus[s] = 0
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := ScopeCases(db.Model(&models.Case{}), caller).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases by status: %w", err)
	}
	for _, row := range statusRows {
		summary.ByStatus[row.Status] = row.Count
		summary.TotalCases += row.Count
	}

	if err := ScopeCases(db.Model(&models.Case{}), caller).
		Select("branch_name AS branch, COUNT(*) AS count").
		Group("branch_name").
		Order("count DESC, branch_name ASC").
		Scan(&summary.ByBranch).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases by branch: %w", err)
	}

	from := StartOfDay(now)
	to := EndOfDay(now.Add(UpcomingHearingWindow))
	visible := ScopeCases(db.Model(&models.Case{}), caller).Select("id")

	var hearings []struct {
		CaseID          string
		CaseNumber      string
		BranchName      string
		ProceedingID    string
		NextHearingDate time.Time
	}
	if err := db.Table("proceedings").
		Select("proceedings.case_id, cases.case_number, cases.branch_name, proceedings.id AS proceeding_id, proceedings.next_hearing_date").
		Joins("JOIN cases ON cases.id = proceedings.case_id").
		Where("proceedings.draft = ?", false).
		Where("proceedings.next_hearing_date BETWEEN ? AND ?", from, to).
		Where("proceedings.case_id IN (?)", visible).
		Order("proceedings.next_hearing_date ASC, cases.case_number ASC").
		Scan(&hearings).Error; err != nil {
		return nil, fmt.Errorf("failed to list upcoming hearings: %w", err)
	}
	for _, h := range hearings {
		summary.UpcomingHearings = append(summary.UpcomingHearings, UpcomingHearing{
			CaseID:       h.CaseID,
			CaseNumber:   h.CaseNumber,
			BranchName:   h.BranchName,
			ProceedingID: h.ProceedingID,
			HearingDate:  h.NextHearingDate,
		})
	}
	return summary, nil
}
