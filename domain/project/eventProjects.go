package project

import (
	"errors"
	"fmt"
	"strconv"

	"hrx/bizerror"
	"hrx/client/mapbox"
	"hrx/domain"
	"hrx/domain/project/team"
	"hrx/event"
	"hrx/geo"
	"hrx/idgen"
	"hrx/misc"
	"hrx/notification"
	"hrx/persistence"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	projectIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateProjectFunc     = CreateProject
	QueryProjectsFunc     = QueryProjects
	DetailProjectFunc     = DetailProject
	UpdateProjectFunc     = UpdateProject
	TransitionProjectFunc = TransitionProject
	DeleteProjectFunc     = DeleteProject
)

func CreateProject(c *domain.EventProjectCreation, sec *session.Session) (*domain.EventProject, error) {
	var violations []bizerror.FieldViolation
	if len(c.ProfessionalsNeeded) == 0 && len(c.EquipmentNeeded) == 0 {
		violations = append(violations, bizerror.FieldViolation{
			Field: "professionalsNeeded", Message: "at least one need list must be non-empty"})
	}
	if c.ProfitMargin != nil && (*c.ProfitMargin < 0 || *c.ProfitMargin > 100) {
		violations = append(violations, bizerror.FieldViolation{
			Field: "profitMargin", Message: "profit margin must be between 0 and 100"})
	}
	if len(violations) > 0 {
		return nil, &bizerror.ErrInvalidArguments{Violations: violations}
	}

	margin := domain.DefaultProfitMargin(c.IsUrgent)
	if c.ProfitMargin != nil {
		margin = *c.ProfitMargin
	}

	venueCoords := geo.Coordinates{}
	if mapbox.Enabled() {
		address := c.VenueAddress + ", " + c.VenueCity + " - " + c.VenueState
		coords, err := mapbox.GeocodeFunc(address)
		if err != nil {
			logrus.Warnf("geocode venue %q failed: %v", address, err)
		} else {
			venueCoords = coords
		}
	}

	var record *domain.EventProject
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		number, err := NextProjectNumber(tx)
		if err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		record = &domain.EventProject{
			ID:            idgen.NextID(projectIdWorker),
			ProjectNumber: number,

			ClientName:    c.ClientName,
			ClientEmail:   c.ClientEmail,
			ClientPhone:   c.ClientPhone,
			ClientCompany: c.ClientCompany,
			ClientCNPJ:    c.ClientCNPJ,

			EventName:        c.EventName,
			EventType:        c.EventType,
			EventDescription: c.EventDescription,
			EventDate:        c.EventDate,

			VenueName:    c.VenueName,
			VenueAddress: c.VenueAddress,
			VenueCity:    c.VenueCity,
			VenueState:   c.VenueState,
			VenueZip:     c.VenueZip,

			VenueLat: venueCoords.Latitude,
			VenueLng: venueCoords.Longitude,

			IsUrgent:     c.IsUrgent,
			ProfitMargin: margin,

			ProfessionalsNeeded: c.ProfessionalsNeeded,
			EquipmentNeeded:     c.EquipmentNeeded,

			Status: domain.ProjectStatusNew,

			CreatorID:  sec.Identity.ID,
			CreateTime: now,
			UpdateTime: now,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		for i := range c.Team {
			member, err := team.BuildTeamMember(tx, record.ID, &c.Team[i])
			if err != nil {
				return err
			}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		}
		if err := team.RecomputeProjectTotalsFunc(tx, record.ID); err != nil {
			return err
		}
		if err := tx.Where(&domain.EventProject{ID: record.ID}).First(record).Error; err != nil {
			return err
		}

		ev, err = event.CreateEvent("event_project", record.ID, record.ProjectNumber,
			event.EventCategoryCreated, nil, &sec.Identity, tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	if record.IsUrgent {
		// best-effort, the attempt itself is recorded
		_ = notification.NotifyFunc(notification.BuildUrgentProjectEmail(record))
	}
	return record, nil
}

func QueryProjects(query *domain.EventProjectQuery, sec *session.Session) (*misc.PagedBody, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Model(&domain.EventProject{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.IsUrgent != "" {
		q = q.Where("is_urgent = ?", query.IsUrgent == "true")
	}
	if query.ClientName != "" {
		q = q.Where("client_name LIKE ?", "%"+query.ClientName+"%")
	}
	if query.EventType != "" {
		q = q.Where("event_type = ?", query.EventType)
	}
	if query.VenueCity != "" {
		q = q.Where("venue_city = ?", query.VenueCity)
	}
	if query.VenueState != "" {
		q = q.Where("venue_state = ?", query.VenueState)
	}

	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var records []domain.EventProject
	if err := q.Order("create_time DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	summaries := make([]domain.EventProjectSummary, 0, len(records))
	for _, r := range records {
		s := domain.EventProjectSummary{EventProject: r}
		for _, need := range r.ProfessionalsNeeded {
			s.TeamCount += need.Quantity
		}
		for _, need := range r.EquipmentNeeded {
			s.EquipmentCount += need.Quantity
		}
		summaries = append(summaries, s)
	}
	return &misc.PagedBody{List: summaries, Total: total, Limit: limit, Offset: offset}, nil
}

func DetailProject(id types.ID, sec *session.Session) (*domain.EventProject, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	var record domain.EventProject
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Where(&domain.EventProject{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateProject(id types.ID, u *domain.EventProjectUpdating, sec *session.Session) (*domain.EventProject, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if u.ProfitMargin != nil && (*u.ProfitMargin < 0 || *u.ProfitMargin > 100) {
		return nil, &bizerror.ErrInvalidArguments{Violations: []bizerror.FieldViolation{
			{Field: "profitMargin", Message: "profit margin must be between 0 and 100"},
		}}
	}

	var updated domain.EventProject
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var origin domain.EventProject
		if err := tx.Where(&domain.EventProject{ID: id}).First(&origin).Error; err != nil {
			return err
		}
		if !domain.ProjectIsEditable(origin.Status) {
			return bizerror.ErrProjectNotEditable
		}

		changes := map[string]interface{}{"update_time": types.CurrentTimestamp()}
		if u.EventName != "" {
			changes["event_name"] = u.EventName
		}
		if u.EventType != "" {
			changes["event_type"] = u.EventType
		}
		if u.EventDescription != "" {
			changes["event_description"] = u.EventDescription
		}
		if !u.EventDate.IsZero() {
			changes["event_date"] = u.EventDate
		}
		if u.VenueName != "" {
			changes["venue_name"] = u.VenueName
		}
		if u.VenueAddress != "" {
			changes["venue_address"] = u.VenueAddress
		}
		if u.VenueCity != "" {
			changes["venue_city"] = u.VenueCity
		}
		if u.VenueState != "" {
			changes["venue_state"] = u.VenueState
		}
		if u.VenueZip != "" {
			changes["venue_zip"] = u.VenueZip
		}
		if u.ProfitMargin != nil {
			changes["profit_margin"] = *u.ProfitMargin
		}
		if u.ProfessionalsNeeded != nil {
			changes["professionals_needed"] = u.ProfessionalsNeeded
		}
		if u.EquipmentNeeded != nil {
			changes["equipment_needed"] = u.EquipmentNeeded
		}

		result := tx.Model(&domain.EventProject{}).Where(&domain.EventProject{ID: id}).Update(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return errors.New("expected affected row is 1, but actual is " +
				strconv.FormatInt(result.RowsAffected, 10))
		}

		// margin or demand changes move the client price
		if err := team.RecomputeProjectTotalsFunc(tx, id); err != nil {
			return err
		}
		return tx.Where(&domain.EventProject{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return &updated, nil
}

// TransitionProject walks the project status machine; the conditional
// update keeps concurrent walkers from double-applying a transition.
func TransitionProject(id types.ID, s *domain.ProjectStatusUpdating, sec *session.Session) (*domain.EventProject, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if _, found := domain.ProjectStateMachine.FindState(s.Status); !found {
		return nil, bizerror.ErrUnknownState
	}

	var updated domain.EventProject
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var origin domain.EventProject
		if err := tx.Where(&domain.EventProject{ID: id}).First(&origin).Error; err != nil {
			return err
		}
		if !domain.ProjectStateMachine.CanTransit(origin.Status, s.Status) {
			return bizerror.ErrInvalidTransition
		}

		now := types.CurrentTimestamp()
		changes := map[string]interface{}{"status": s.Status, "update_time": now}
		switch s.Status {
		case domain.ProjectStatusQuoted:
			changes["quoted_time"] = now
		case domain.ProjectStatusApproved:
			changes["approved_time"] = now
		case domain.ProjectStatusCompleted:
			changes["complete_time"] = now
		}

		result := tx.Model(&domain.EventProject{}).
			Where("id = ? AND status = ?", id, origin.Status).Update(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return &bizerror.ErrConflict{Code: "project.status_conflict",
				Message: "project status changed concurrently"}
		}

		var err error
		ev, err = event.CreateEvent("event_project", origin.ID, origin.ProjectNumber,
			event.EventCategoryStatusUpdated,
			[]event.UpdatedProperty{{PropertyName: "Status", OldValue: origin.Status, NewValue: s.Status}},
			&sec.Identity, tx)
		if err != nil {
			return err
		}
		return tx.Where(&domain.EventProject{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	if updated.Status == domain.ProjectStatusProposed {
		_ = notification.NotifyFunc(notification.BuildProposalEmail(&updated))
	}
	return &updated, nil
}

func DeleteProject(id types.ID, sec *session.Session) error {
	if !sec.IsAdmin() {
		return bizerror.ErrForbidden
	}

	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var origin domain.EventProject
		err := tx.Where(&domain.EventProject{ID: id}).First(&origin).Error
		if err == nil {
			ev, err = event.CreateEvent("event_project", origin.ID, origin.ProjectNumber,
				event.EventCategoryDeleted, nil, &sec.Identity, tx)
			if err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Delete(domain.EventProject{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.TeamMember{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.SupplierQuotation{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(domain.Contract{}, "project_id = ?", id).Error
	})
	if err1 != nil {
		return err1
	}
	if event.InvokeHandlersFunc != nil && ev != nil {
		event.InvokeHandlersFunc(ev)
	}
	return nil
}

// NextProjectNumber consumes the single-row counter with a conditional
// update; a concurrent consumer makes the transaction retryable by the caller.
func NextProjectNumber(tx *gorm.DB) (string, error) {
	seq := domain.ProjectNumberSequence{}
	if err := tx.Where(&domain.ProjectNumberSequence{ID: 1}).First(&seq).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		seq = domain.ProjectNumberSequence{ID: 1, NextProject: 1}
		if err := tx.Create(&seq).Error; err != nil {
			return "", err
		}
	}

	number := fmt.Sprintf("PRJ-%d", seq.NextProject)
	result := tx.Model(&domain.ProjectNumberSequence{}).
		Where(&domain.ProjectNumberSequence{ID: 1, NextProject: seq.NextProject}).
		Update("next_project", seq.NextProject+1)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected != 1 {
		return "", errors.New("concurrent modification")
	}
	return number, nil
}
