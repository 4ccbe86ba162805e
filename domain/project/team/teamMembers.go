package team

import (
	"errors"
	"fmt"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/event"
	"hrx/idgen"
	"hrx/persistence"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	teamIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	AddTeamMemberFunc    = AddTeamMember
	UpdateTeamMemberFunc = UpdateTeamMember
	RemoveTeamMemberFunc = RemoveTeamMember
	ListTeamMembersFunc  = ListTeamMembers

	RecomputeProjectTotalsFunc = RecomputeProjectTotals
)

// IntegrityDefect reports a stored total_cost that no longer matches
// rate*qty*days. Defective rows are surfaced, never silently rewritten.
type IntegrityDefect struct {
	MemberID     types.ID `json:"memberId"`
	StoredCost   float64  `json:"storedCost"`
	ExpectedCost float64  `json:"expectedCost"`
}

type TeamView struct {
	Members []domain.TeamMember `json:"members"`
	Defects []IntegrityDefect   `json:"defects,omitempty"`
}

// RemovalResult carries the understaffed warning of a removal; the removal
// itself always goes through, the warning is advisory.
type RemovalResult struct {
	Understaffed bool   `json:"understaffed"`
	Category     string `json:"category,omitempty"`
	Requested    int    `json:"requested,omitempty"`
	Staffed      int    `json:"staffed,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// BuildTeamMember validates one staffing row and prices it. Exactly one of
// professionalId and externalName must be set.
func BuildTeamMember(tx *gorm.DB, projectID types.ID, c *domain.TeamMemberCreation) (*domain.TeamMember, error) {
	if (c.ProfessionalID == 0) == (c.ExternalName == "") {
		return nil, &bizerror.ErrInvalidArguments{Violations: []bizerror.FieldViolation{
			{Field: "professionalId", Message: "exactly one of professionalId and externalName must be set"},
		}}
	}

	member := domain.TeamMember{
		ID:        idgen.NextID(teamIdWorker),
		ProjectID: projectID,

		ProfessionalID: c.ProfessionalID,
		ExternalName:   c.ExternalName,

		Role:        c.Role,
		Category:    c.Category,
		Subcategory: c.Subcategory,

		Quantity:     c.Quantity,
		DurationDays: c.DurationDays,
		DailyRate:    c.DailyRate,

		Status: domain.TeamMemberStatusPlanned,
		Notes:  c.Notes,

		CreateTime: types.CurrentTimestamp(),
		UpdateTime: types.CurrentTimestamp(),
	}
	if member.Quantity == 0 {
		member.Quantity = 1
	}
	if member.DurationDays == 0 {
		member.DurationDays = 1
	}

	if c.ProfessionalID != 0 {
		var professional domain.Professional
		if err := tx.Where(&domain.Professional{ID: c.ProfessionalID}).First(&professional).Error; err != nil {
			return nil, err
		}
		if professional.Status != domain.RegistrationStatusApproved {
			return nil, &bizerror.ErrConflict{Code: "professional.not_approved",
				Message: "professional " + professional.FullName + " is not approved"}
		}
		if member.DailyRate == 0 {
			member.DailyRate = professional.DailyRate
		}
	}

	member.TotalCost = member.CostOf()
	return &member, nil
}

func AddTeamMember(projectID types.ID, c *domain.TeamMemberCreation, sec *session.Session) (*domain.TeamMember, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var member *domain.TeamMember
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		project, err := findEditableProject(tx, projectID)
		if err != nil {
			return err
		}

		member, err = BuildTeamMember(tx, projectID, c)
		if err != nil {
			return err
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		if err := RecomputeProjectTotals(tx, projectID); err != nil {
			return err
		}

		ev, err = event.CreateEvent("team_member", member.ID, member.Role+" @ "+project.ProjectNumber,
			event.EventCategoryCreated, nil, &sec.Identity, tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return member, nil
}

func UpdateTeamMember(id types.ID, u *domain.TeamMemberUpdating, sec *session.Session) (*domain.TeamMember, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var updated domain.TeamMember
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var member domain.TeamMember
		if err := tx.Where(&domain.TeamMember{ID: id}).First(&member).Error; err != nil {
			return err
		}
		if _, err := findEditableProject(tx, member.ProjectID); err != nil {
			return err
		}

		if u.Quantity != nil {
			member.Quantity = *u.Quantity
		}
		if u.DurationDays != nil {
			member.DurationDays = *u.DurationDays
		}
		if u.DailyRate != nil {
			member.DailyRate = *u.DailyRate
		}
		if u.Status != "" {
			member.Status = u.Status
		}
		if u.Notes != nil {
			member.Notes = *u.Notes
		}

		changes := map[string]interface{}{
			"quantity":      member.Quantity,
			"duration_days": member.DurationDays,
			"daily_rate":    member.DailyRate,
			"total_cost":    member.CostOf(),
			"status":        member.Status,
			"notes":         member.Notes,
			"update_time":   types.CurrentTimestamp(),
		}
		result := tx.Model(&domain.TeamMember{}).Where(&domain.TeamMember{ID: id}).Update(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return errors.New("expected affected row is 1, but actual is " +
				fmt.Sprintf("%d", result.RowsAffected))
		}

		if err := RecomputeProjectTotals(tx, member.ProjectID); err != nil {
			return err
		}
		return tx.Where(&domain.TeamMember{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return &updated, nil
}

func RemoveTeamMember(id types.ID, overrideUnderstaffed bool, sec *session.Session) (*RemovalResult, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	result := RemovalResult{}
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var member domain.TeamMember
		if err := tx.Where(&domain.TeamMember{ID: id}).First(&member).Error; err != nil {
			return err
		}
		project, err := findEditableProject(tx, member.ProjectID)
		if err != nil {
			return err
		}

		if err := tx.Delete(domain.TeamMember{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := RecomputeProjectTotals(tx, member.ProjectID); err != nil {
			return err
		}

		if !overrideUnderstaffed {
			staffed, err := staffedQuantity(tx, member.ProjectID, member.Category)
			if err != nil {
				return err
			}
			for _, need := range project.ProfessionalsNeeded {
				if need.Category == member.Category && staffed < need.Quantity {
					result.Understaffed = true
					result.Category = need.Category
					result.Requested = need.Quantity
					result.Staffed = staffed
					result.Warning = fmt.Sprintf("category %s staffed %d of %d requested",
						need.Category, staffed, need.Quantity)
				}
			}
		}

		ev, err = event.CreateEvent("team_member", member.ID, member.Role+" @ "+project.ProjectNumber,
			event.EventCategoryDeleted, nil, &sec.Identity, tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &result, nil
}

func ListTeamMembers(projectID types.ID, sec *session.Session) (*TeamView, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	var members []domain.TeamMember
	if err := db.Where(&domain.TeamMember{ProjectID: projectID}).
		Order("create_time ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	view := TeamView{Members: members}
	for _, m := range members {
		if expected := m.CostOf(); m.TotalCost != expected {
			logrus.Warnf("team member %v of project %v stored total_cost %.2f, expected %.2f",
				m.ID, m.ProjectID, m.TotalCost, expected)
			view.Defects = append(view.Defects, IntegrityDefect{
				MemberID: m.ID, StoredCost: m.TotalCost, ExpectedCost: expected})
		}
	}
	return &view, nil
}

// RecomputeProjectTotals rebuilds the project cost columns from the current
// team rows and the stored equipment cost. Callers hold the transaction.
func RecomputeProjectTotals(tx *gorm.DB, projectID types.ID) error {
	var project domain.EventProject
	if err := tx.Where(&domain.EventProject{ID: projectID}).First(&project).Error; err != nil {
		return err
	}

	row := struct{ Total float64 }{}
	if err := tx.Model(&domain.TeamMember{}).
		Where("project_id = ? AND status NOT IN (?)", projectID,
			[]string{domain.TeamMemberStatusRejected, domain.TeamMemberStatusCancelled}).
		Select("COALESCE(SUM(total_cost), 0) as total").Scan(&row).Error; err != nil {
		return err
	}

	teamCost := domain.Round2(row.Total)
	totalCost := domain.Round2(teamCost + project.TotalEquipmentCost)
	return tx.Model(&domain.EventProject{}).Where(&domain.EventProject{ID: projectID}).
		Update(map[string]interface{}{
			"total_team_cost":    teamCost,
			"total_cost":         totalCost,
			"total_client_price": domain.ClientPrice(totalCost, project.ProfitMargin),
			"update_time":        types.CurrentTimestamp(),
		}).Error
}

func staffedQuantity(tx *gorm.DB, projectID types.ID, category string) (int, error) {
	row := struct{ Total int }{}
	err := tx.Model(&domain.TeamMember{}).
		Where("project_id = ? AND category = ? AND status NOT IN (?)", projectID, category,
			[]string{domain.TeamMemberStatusRejected, domain.TeamMemberStatusCancelled}).
		Select("COALESCE(SUM(quantity), 0) as total").Scan(&row).Error
	return row.Total, err
}

func findEditableProject(tx *gorm.DB, projectID types.ID) (*domain.EventProject, error) {
	var project domain.EventProject
	if err := tx.Where(&domain.EventProject{ID: projectID}).First(&project).Error; err != nil {
		return nil, err
	}
	if !domain.ProjectIsEditable(project.Status) {
		return nil, bizerror.ErrProjectNotEditable
	}
	return &project, nil
}
