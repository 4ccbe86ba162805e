package professional

import (
	"errors"
	"sort"
	"strings"

	"hrx/bizerror"
	"hrx/client/mapbox"
	"hrx/domain"
	"hrx/event"
	"hrx/geo"
	"hrx/idgen"
	"hrx/misc"
	"hrx/notification"
	"hrx/persistence"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	professionalIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	RegisterProfessionalFunc = RegisterProfessional
	QueryProfessionalsFunc   = QueryProfessionals
	DetailProfessionalFunc   = DetailProfessional
	UpdateProfessionalFunc   = UpdateProfessional
	ApproveProfessionalFunc  = ApproveProfessional
	RejectProfessionalFunc   = RejectProfessional
	ListHistoryFunc          = ListHistory
	NearbyProfessionalsFunc  = NearbyProfessionals
	LoadProfessionalsFunc    = LoadProfessionals
)

// NearbyMatch is one approved professional within the search radius.
type NearbyMatch struct {
	domain.Professional
	DistanceKm float64 `json:"distanceKm"`
}

// RegisterProfessional is the public intake. CPF and email are pre-checked
// against non-rejected records; the conflict names the duplicated field.
func RegisterProfessional(reg *domain.ProfessionalRegistration, ctx *session.Session) (*domain.Professional, error) {
	coords, _ := mapbox.GeocodeBestEffortFunc(reg.City + " - " + reg.State)

	var record *domain.Professional
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(ctx.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		if err := checkDuplicates(tx, reg.CPF, reg.Email, 0); err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		record = &domain.Professional{
			ID: idgen.NextID(professionalIdWorker),

			FullName: reg.FullName,
			CPF:      reg.CPF,
			Email:    reg.Email,
			Phone:    reg.Phone,

			Category:    reg.Category,
			Subcategory: reg.Subcategory,
			DailyRate:   reg.DailyRate,

			City:      reg.City,
			State:     reg.State,
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,

			Status: domain.RegistrationStatusPending,

			CreateTime: now,
			UpdateTime: now,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		var err error
		ev, err = event.CreateEvent("professional", record.ID, record.FullName,
			event.EventCategoryCreated, nil, &ctx.Identity, tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return record, nil
}

func QueryProfessionals(query *domain.ProfessionalQuery, sec *session.Session) (*misc.PagedBody, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Model(&domain.Professional{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Category != "" {
		q = q.Where("category = ?", query.Category)
	}
	if query.City != "" {
		q = q.Where("city = ?", query.City)
	}
	if query.State != "" {
		q = q.Where("state = ?", query.State)
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

	var records []domain.Professional
	if err := q.Order("create_time DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return &misc.PagedBody{List: records, Total: total, Limit: limit, Offset: offset}, nil
}

// LoadProfessionals pages through the whole table, page starting from 1.
func LoadProfessionals(page, size int) ([]domain.Professional, error) {
	records := []domain.Professional{}
	db := persistence.ActiveDataSourceManager.GormDB(nil)
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	if err := db.Order("ID ASC").Offset(offset).Limit(size).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailProfessional(id types.ID, sec *session.Session) (*domain.Professional, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	var record domain.Professional
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Where(&domain.Professional{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateProfessional edits profile fields; updating a rejected record is a
// resubmission and moves it back to pending with an audit entry.
func UpdateProfessional(id types.ID, u *domain.ProfessionalUpdating, sec *session.Session) (*domain.Professional, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)

	// a city or state change moves the pin, resolve it before the transaction
	var coords *geo.Coordinates
	if u.City != "" || u.State != "" {
		var current domain.Professional
		if err := db.Where(&domain.Professional{ID: id}).First(&current).Error; err != nil {
			return nil, err
		}
		city, state := current.City, current.State
		if u.City != "" {
			city = u.City
		}
		if u.State != "" {
			state = u.State
		}
		if c, ok := mapbox.GeocodeBestEffortFunc(city + " - " + state); ok {
			coords = &c
		}
	}

	var updated domain.Professional
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var origin domain.Professional
		if err := tx.Where(&domain.Professional{ID: id}).First(&origin).Error; err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		changes := map[string]interface{}{"update_time": now}
		if u.FullName != "" {
			changes["full_name"] = u.FullName
		}
		if u.Phone != "" {
			changes["phone"] = u.Phone
		}
		if u.Category != "" {
			changes["category"] = u.Category
		}
		if u.Subcategory != "" {
			changes["subcategory"] = u.Subcategory
		}
		if u.DailyRate != nil {
			changes["daily_rate"] = *u.DailyRate
		}
		if u.City != "" {
			changes["city"] = u.City
		}
		if u.State != "" {
			changes["state"] = u.State
		}
		if coords != nil {
			changes["latitude"] = coords.Latitude
			changes["longitude"] = coords.Longitude
		}

		if origin.Status == domain.RegistrationStatusRejected {
			changes["status"] = domain.RegistrationStatusPending
			changes["rejection_reason"] = ""
			changes["flagged_documents"] = domain.StringList{}
			if err := appendHistory(tx, &origin, domain.RegistrationStatusPending,
				"resubmitted", nil, &sec.Identity); err != nil {
				return err
			}
		}

		if err := tx.Model(&domain.Professional{}).Where(&domain.Professional{ID: id}).
			Update(changes).Error; err != nil {
			return err
		}
		return tx.Where(&domain.Professional{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return &updated, nil
}

// ApproveProfessional is idempotent: approving an approved record succeeds
// without a second history entry or email.
func ApproveProfessional(id types.ID, sec *session.Session) (*domain.Professional, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var record domain.Professional
	alreadyApproved := false
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Professional{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if record.Status == domain.RegistrationStatusApproved {
			alreadyApproved = true
			return nil
		}

		now := types.CurrentTimestamp()
		result := tx.Model(&domain.Professional{}).
			Where("id = ? AND status = ?", id, record.Status).
			Update(map[string]interface{}{
				"status":           domain.RegistrationStatusApproved,
				"rejection_reason": "",
				"approved_by":      sec.Identity.ID,
				"approved_time":    now,
				"update_time":      now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return &bizerror.ErrConflict{Code: "professional.status_conflict",
				Message: "professional status changed concurrently"}
		}

		if err := appendHistory(tx, &record, domain.RegistrationStatusApproved, "", nil, &sec.Identity); err != nil {
			return err
		}

		var err error
		ev, err = event.CreateEvent("professional", record.ID, record.FullName,
			event.EventCategoryStatusUpdated,
			[]event.UpdatedProperty{{PropertyName: "Status",
				OldValue: record.Status, NewValue: domain.RegistrationStatusApproved}},
			&sec.Identity, tx)
		if err != nil {
			return err
		}
		return tx.Where(&domain.Professional{ID: id}).First(&record).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if !alreadyApproved {
		if event.InvokeHandlersFunc != nil {
			event.InvokeHandlersFunc(ev)
		}
		_ = notification.NotifyFunc(notification.BuildProfessionalApprovedEmail(&record))
	}
	return &record, nil
}

// RejectProfessional stores the reason and the flagged document list
// verbatim on both the record and its history row.
func RejectProfessional(id types.ID, rejection *domain.ProfessionalRejection, sec *session.Session) (*domain.Professional, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if strings.TrimSpace(rejection.Reason) == "" {
		return nil, bizerror.ErrRejectReasonMissing
	}

	var record domain.Professional
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Professional{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if record.Status == domain.RegistrationStatusRejected {
			return &bizerror.ErrConflict{Code: "professional.already_rejected",
				Message: "professional is already rejected"}
		}

		now := types.CurrentTimestamp()
		result := tx.Model(&domain.Professional{}).
			Where("id = ? AND status = ?", id, record.Status).
			Update(map[string]interface{}{
				"status":            domain.RegistrationStatusRejected,
				"rejection_reason":  rejection.Reason,
				"flagged_documents": rejection.FlaggedDocuments,
				"update_time":       now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return &bizerror.ErrConflict{Code: "professional.status_conflict",
				Message: "professional status changed concurrently"}
		}

		if err := appendHistory(tx, &record, domain.RegistrationStatusRejected,
			rejection.Reason, rejection.FlaggedDocuments, &sec.Identity); err != nil {
			return err
		}

		var err error
		ev, err = event.CreateEvent("professional", record.ID, record.FullName,
			event.EventCategoryStatusUpdated,
			[]event.UpdatedProperty{{PropertyName: "Status",
				OldValue: record.Status, NewValue: domain.RegistrationStatusRejected}},
			&sec.Identity, tx)
		if err != nil {
			return err
		}
		return tx.Where(&domain.Professional{ID: id}).First(&record).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	_ = notification.NotifyFunc(notification.BuildProfessionalRejectedEmail(&record, *rejection))
	return &record, nil
}

func ListHistory(id types.ID, sec *session.Session) ([]domain.ProfessionalHistory, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	var records []domain.ProfessionalHistory
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Where(&domain.ProfessionalHistory{ProfessionalID: id}).
		Order("create_time ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// NearbyProfessionals filters approved records by a bounding box in SQL
// and post-filters with the exact haversine distance.
func NearbyProfessionals(center geo.Coordinates, radiusKm float64, category string, sec *session.Session) ([]NearbyMatch, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if radiusKm <= 0 {
		radiusKm = 50
	}
	box := geo.BoxAround(center, radiusKm)

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Where("status = ?", domain.RegistrationStatusApproved).
		Where("latitude BETWEEN ? AND ?", box.MinLatitude, box.MaxLatitude).
		Where("longitude BETWEEN ? AND ?", box.MinLongitude, box.MaxLongitude)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var records []domain.Professional
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}

	matches := []NearbyMatch{}
	for _, r := range records {
		d := geo.Distance(center, geo.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude})
		if d <= radiusKm {
			matches = append(matches, NearbyMatch{Professional: r, DistanceKm: domain.Round2(d)})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].DistanceKm < matches[j].DistanceKm })
	return matches, nil
}

func appendHistory(tx *gorm.DB, origin *domain.Professional, toStatus, reason string,
	flagged domain.StringList, actor *session.Identity) error {
	return tx.Create(&domain.ProfessionalHistory{
		ID:             idgen.NextID(professionalIdWorker),
		ProfessionalID: origin.ID,

		FromStatus: origin.Status,
		ToStatus:   toStatus,

		Reason:           reason,
		FlaggedDocuments: flagged,

		ActorID:    actor.ID,
		ActorName:  actor.Nickname,
		CreateTime: types.CurrentTimestamp(),
	}).Error
}

func checkDuplicates(tx *gorm.DB, cpf, email string, selfID types.ID) error {
	var existing domain.Professional
	err := tx.Where("cpf = ? AND status != ? AND id != ?",
		cpf, domain.RegistrationStatusRejected, selfID).First(&existing).Error
	if err == nil {
		return &bizerror.ErrConflict{Code: "professional.duplicate_cpf",
			Message: "a professional with this CPF already exists"}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	err = tx.Where("email = ? AND status != ? AND id != ?",
		email, domain.RegistrationStatusRejected, selfID).First(&existing).Error
	if err == nil {
		return &bizerror.ErrConflict{Code: "professional.duplicate_email",
			Message: "a professional with this email already exists"}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
