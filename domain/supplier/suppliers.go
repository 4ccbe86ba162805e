package supplier

import (
	"errors"
	"sort"

	"hrx/bizerror"
	"hrx/client/mapbox"
	"hrx/domain"
	"hrx/event"
	"hrx/geo"
	"hrx/idgen"
	"hrx/persistence"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	supplierIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	RegisterSupplierFunc     = RegisterSupplier
	QuerySuppliersFunc       = QuerySuppliers
	DetailSupplierFunc       = DetailSupplier
	UpdateSupplierFunc       = UpdateSupplier
	UpdateSupplierStatusFunc = UpdateSupplierStatus
	NearbySuppliersFunc      = NearbySuppliers
)

type SupplierStatusUpdating struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

type NearbyMatch struct {
	domain.EquipmentSupplier
	DistanceKm float64 `json:"distanceKm"`
}

// RegisterSupplier is the public intake; CNPJ and email are pre-checked
// against active records.
func RegisterSupplier(reg *domain.SupplierRegistration, ctx *session.Session) (*domain.EquipmentSupplier, error) {
	coords, _ := mapbox.GeocodeBestEffortFunc(reg.City + " - " + reg.State)

	var record *domain.EquipmentSupplier
	var ev *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(ctx.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var existing domain.EquipmentSupplier
		err := tx.Where("cnpj = ? AND status = ?", reg.CNPJ, domain.SupplierStatusActive).
			First(&existing).Error
		if err == nil {
			return &bizerror.ErrConflict{Code: "supplier.duplicate_cnpj",
				Message: "a supplier with this CNPJ already exists"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = tx.Where("email = ? AND status = ?", reg.Email, domain.SupplierStatusActive).
			First(&existing).Error
		if err == nil {
			return &bizerror.ErrConflict{Code: "supplier.duplicate_email",
				Message: "a supplier with this email already exists"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := types.CurrentTimestamp()
		record = &domain.EquipmentSupplier{
			ID: idgen.NextID(supplierIdWorker),

			CompanyName: reg.CompanyName,
			ContactName: reg.ContactName,
			CNPJ:        reg.CNPJ,
			Email:       reg.Email,
			Phone:       reg.Phone,

			EquipmentTypes: reg.EquipmentTypes,

			City:      reg.City,
			State:     reg.State,
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,

			Status: domain.SupplierStatusActive,

			CreateTime: now,
			UpdateTime: now,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		ev, err = event.CreateEvent("equipment_supplier", record.ID, record.CompanyName,
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

func QuerySuppliers(query *domain.SupplierQuery, sec *session.Session) ([]domain.EquipmentSupplier, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Model(&domain.EquipmentSupplier{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.EquipmentType != "" {
		q = q.Where("equipment_types LIKE ?", "%\""+query.EquipmentType+"\"%")
	}
	if query.City != "" {
		q = q.Where("city = ?", query.City)
	}
	if query.State != "" {
		q = q.Where("state = ?", query.State)
	}

	var records []domain.EquipmentSupplier
	if err := q.Order("company_name ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailSupplier(id types.ID, sec *session.Session) (*domain.EquipmentSupplier, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	var record domain.EquipmentSupplier
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := db.Where(&domain.EquipmentSupplier{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateSupplier(id types.ID, u *domain.SupplierUpdating, sec *session.Session) (*domain.EquipmentSupplier, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)

	// a city or state change moves the pin, resolve it before the transaction
	var coords *geo.Coordinates
	if u.City != "" || u.State != "" {
		var current domain.EquipmentSupplier
		if err := db.Where(&domain.EquipmentSupplier{ID: id}).First(&current).Error; err != nil {
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

	var updated domain.EquipmentSupplier
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var origin domain.EquipmentSupplier
		if err := tx.Where(&domain.EquipmentSupplier{ID: id}).First(&origin).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{"update_time": types.CurrentTimestamp()}
		if u.CompanyName != "" {
			changes["company_name"] = u.CompanyName
		}
		if u.ContactName != "" {
			changes["contact_name"] = u.ContactName
		}
		if u.Phone != "" {
			changes["phone"] = u.Phone
		}
		if u.EquipmentTypes != nil {
			changes["equipment_types"] = u.EquipmentTypes
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

		if err := tx.Model(&domain.EquipmentSupplier{}).Where(&domain.EquipmentSupplier{ID: id}).
			Update(changes).Error; err != nil {
			return err
		}
		return tx.Where(&domain.EquipmentSupplier{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return &updated, nil
}

// UpdateSupplierStatus gates quotation dispatch: only active suppliers
// receive requests. The row is kept either way.
func UpdateSupplierStatus(id types.ID, u *SupplierStatusUpdating, sec *session.Session) (*domain.EquipmentSupplier, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var updated domain.EquipmentSupplier
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var origin domain.EquipmentSupplier
		if err := tx.Where(&domain.EquipmentSupplier{ID: id}).First(&origin).Error; err != nil {
			return err
		}
		if origin.Status == u.Status {
			updated = origin
			return nil
		}
		if err := tx.Model(&domain.EquipmentSupplier{}).Where(&domain.EquipmentSupplier{ID: id}).
			Update(map[string]interface{}{
				"status": u.Status, "update_time": types.CurrentTimestamp()}).Error; err != nil {
			return err
		}
		return tx.Where(&domain.EquipmentSupplier{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return &updated, nil
}

func NearbySuppliers(center geo.Coordinates, radiusKm float64, equipmentType string, sec *session.Session) ([]NearbyMatch, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if radiusKm <= 0 {
		radiusKm = 50
	}
	box := geo.BoxAround(center, radiusKm)

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Where("status = ?", domain.SupplierStatusActive).
		Where("latitude BETWEEN ? AND ?", box.MinLatitude, box.MaxLatitude).
		Where("longitude BETWEEN ? AND ?", box.MinLongitude, box.MaxLongitude)
	if equipmentType != "" {
		q = q.Where("equipment_types LIKE ?", "%\""+equipmentType+"\"%")
	}

	var records []domain.EquipmentSupplier
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}

	matches := []NearbyMatch{}
	for _, r := range records {
		d := geo.Distance(center, geo.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude})
		if d <= radiusKm {
			matches = append(matches, NearbyMatch{EquipmentSupplier: r, DistanceKm: domain.Round2(d)})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].DistanceKm < matches[j].DistanceKm })
	return matches, nil
}
