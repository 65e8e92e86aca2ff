package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"writ_docket_go/models"
)

// MaxSearchResults caps a case search
const MaxSearchResults = 50

// sanitizeSearchQuery escapes LIKE wildcards and collapses whitespace
func sanitizeSearchQuery(query string) string {
	cleaned := strings.Join(strings.Fields(query), " ")
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(cleaned)
}

// SearchCases matches q against the case number, petitioner, branch, police
// station, writ number and investigating officers of the caller's cases.
func SearchCases(db *gorm.DB, caller Caller, q string, limit int) ([]models.Case, error) {
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	term := sanitizeSearchQuery(q)
	if len(term) < 2 {
		return []models.Case{}, nil
	}
	pattern := "%" + strings.ToLower(term) + "%"

	query := ScopeCases(db.Model(&models.Case{}), caller).Where(
		`(LOWER(case_number) LIKE ? ESCAPE '\' OR LOWER(petitioner_name) LIKE ? ESCAPE '\' OR LOWER(branch_name) LIKE ? ESCAPE '\' OR `+
			`LOWER(police_station) LIKE ? ESCAPE '\' OR LOWER(writ_number) LIKE ? ESCAPE '\' OR LOWER(CAST(investigating_officers AS TEXT)) LIKE ? ESCAPE '\')`,
		pattern, pattern, pattern, pattern, pattern, pattern,
	)

	cases := []models.Case{}
	if err := query.Order("case_date DESC").Limit(limit).Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return cases, nil
}
