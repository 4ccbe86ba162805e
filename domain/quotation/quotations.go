package quotation

import (
	"errors"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/domain/project/team"
	"hrx/event"
	"hrx/idgen"
	"hrx/notification"
	"hrx/persistence"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	quotationIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	DispatchQuotationsFunc    = DispatchQuotations
	ListQuotationsFunc        = ListQuotations
	FetchQuotationByTokenFunc = FetchQuotationByToken
	SubmitQuotationFunc       = SubmitQuotation
	AcceptQuotationFunc       = AcceptQuotation
	RejectQuotationFunc       = RejectQuotation
)

// DispatchQuotations creates one pending quotation per active supplier and
// mails each one its access link. Failures are reported per supplier, one
// bad supplier never blocks the rest.
func DispatchQuotations(projectID types.ID, d *domain.QuotationDispatching, sec *session.Session) ([]domain.DispatchResult, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	var project domain.EventProject
	if err := db.Where(&domain.EventProject{ID: projectID}).First(&project).Error; err != nil {
		return nil, err
	}

	var requestedItems domain.EquipmentNeeds
	for _, need := range project.EquipmentNeeded {
		if need.Type == d.EquipmentType {
			requestedItems = append(requestedItems, need)
		}
	}
	if len(requestedItems) == 0 {
		return nil, &bizerror.ErrInvalidArguments{Violations: []bizerror.FieldViolation{
			{Field: "equipmentType", Message: "project has no equipment need of type " + d.EquipmentType},
		}}
	}

	results := make([]domain.DispatchResult, 0, len(d.SupplierIDs))
	type mailing struct {
		quotation domain.SupplierQuotation
		supplier  domain.EquipmentSupplier
	}
	var mailings []mailing

	err1 := db.Transaction(func(tx *gorm.DB) error {
		for _, supplierID := range d.SupplierIDs {
			result := domain.DispatchResult{SupplierID: supplierID}

			var supplier domain.EquipmentSupplier
			if err := tx.Where(&domain.EquipmentSupplier{ID: supplierID}).First(&supplier).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result.Error = "supplier not found"
					results = append(results, result)
					continue
				}
				return err
			}
			result.SupplierName = supplier.CompanyName
			if supplier.Status != domain.SupplierStatusActive {
				result.Error = bizerror.ErrSupplierInactive.Error()
				results = append(results, result)
				continue
			}

			now := types.CurrentTimestamp()
			record := domain.SupplierQuotation{
				ID:         idgen.NextID(quotationIdWorker),
				ProjectID:  projectID,
				SupplierID: supplierID,

				EquipmentType:  d.EquipmentType,
				RequestedItems: requestedItems,
				AccessToken:    uuid.New().String(),

				Status:        domain.QuotationStatusPending,
				MarginApplied: project.ProfitMargin,

				ValidUntil: d.ValidUntil,
				CreateTime: now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			result.QuotationID = record.ID
			result.Success = true
			results = append(results, result)
			mailings = append(mailings, mailing{quotation: record, supplier: supplier})
		}

		if domain.ProjectStateMachine.CanTransit(project.Status, domain.ProjectStatusQuoting) {
			changes := map[string]interface{}{
				"status": domain.ProjectStatusQuoting, "update_time": types.CurrentTimestamp()}
			result := tx.Model(&domain.EventProject{}).
				Where("id = ? AND status = ?", projectID, project.Status).Update(changes)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err1 != nil {
		return nil, err1
	}

	for i := range mailings {
		_ = notification.NotifyFunc(notification.BuildQuoteRequestEmail(
			&project, &mailings[i].quotation, &mailings[i].supplier))
	}
	return results, nil
}

func ListQuotations(projectID types.ID, sec *session.Session) ([]domain.SupplierQuotation, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	if err := expireOverdue(db, projectID); err != nil {
		return nil, err
	}
	var records []domain.SupplierQuotation
	if err := db.Where(&domain.SupplierQuotation{ProjectID: projectID}).
		Order("create_time ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FetchQuotationByToken is the public supplier-facing read. Overdue rows
// are expired here, on read, never by a background job.
func FetchQuotationByToken(token string, ctx *session.Session) (*domain.QuotationPublicView, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx.Context)

	record, err := findByToken(db, token)
	if err != nil {
		return nil, err
	}
	if err := expireOverdue(db, record.ProjectID); err != nil {
		return nil, err
	}
	record, err = findByToken(db, token)
	if err != nil {
		return nil, err
	}

	var project domain.EventProject
	if err := db.Where(&domain.EventProject{ID: record.ProjectID}).First(&project).Error; err != nil {
		return nil, err
	}

	return &domain.QuotationPublicView{
		ID:     record.ID,
		Status: record.Status,

		ProjectNumber: project.ProjectNumber,
		EventName:     project.EventName,
		EventDate:     project.EventDate,
		VenueCity:     project.VenueCity,
		VenueState:    project.VenueState,

		EquipmentType:  record.EquipmentType,
		RequestedItems: record.RequestedItems,
		ValidUntil:     record.ValidUntil,

		CanRespond:       record.Status == domain.QuotationStatusPending,
		IsExpired:        record.Status == domain.QuotationStatusExpired,
		AlreadyResponded: record.Status != domain.QuotationStatusPending && record.Status != domain.QuotationStatusExpired,
	}, nil
}

// SubmitQuotation prices a pending quotation. The token is inert once the
// row left pending; resubmission conflicts and stored fields stay intact.
func SubmitQuotation(token string, s *domain.QuotationSubmission, ctx *session.Session) (*domain.SupplierQuotation, error) {
	var updated domain.SupplierQuotation
	db := persistence.ActiveDataSourceManager.GormDB(ctx.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		record, err := findByToken(tx, token)
		if err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		if record.Status == domain.QuotationStatusPending && record.ValidUntil.Time().Before(now.Time()) {
			if err := expireOverdue(tx, record.ProjectID); err != nil {
				return err
			}
			return bizerror.ErrQuotationExpired
		}
		if record.Status == domain.QuotationStatusExpired {
			return bizerror.ErrQuotationExpired
		}
		if record.Status != domain.QuotationStatusPending {
			return bizerror.ErrQuotationConflict
		}

		totalPrice := domain.ClientPrice(s.SupplierPrice, record.MarginApplied)
		result := tx.Model(&domain.SupplierQuotation{}).
			Where("id = ? AND status = ?", record.ID, domain.QuotationStatusPending).
			Update(map[string]interface{}{
				"status":         domain.QuotationStatusSubmitted,
				"supplier_price": s.SupplierPrice,
				"total_price":    totalPrice,
				"delivery_time":  s.DeliveryTime,
				"payment_terms":  s.PaymentTerms,
				"supplier_notes": s.Notes,
				"respond_time":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrQuotationConflict
		}
		return tx.Where(&domain.SupplierQuotation{ID: record.ID}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return &updated, nil
}

// AcceptQuotation picks the winner. The conditional update makes it a
// single-winner race: exactly one concurrent accept lands, losers conflict.
func AcceptQuotation(projectID, quotationID types.ID, sec *session.Session) (*domain.SupplierQuotation, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var accepted domain.SupplierQuotation
	var project domain.EventProject
	var losers []domain.SupplierQuotation
	var ev *event.EventRecord

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var record domain.SupplierQuotation
		if err := tx.Where(&domain.SupplierQuotation{ID: quotationID}).First(&record).Error; err != nil {
			return err
		}
		if record.ProjectID != projectID {
			return bizerror.ErrNotFound
		}

		var accepted0 domain.SupplierQuotation
		err := tx.Where("project_id = ? AND equipment_type = ? AND status = ?",
			projectID, record.EquipmentType, domain.QuotationStatusAccepted).First(&accepted0).Error
		if err == nil {
			return bizerror.ErrQuotationConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := types.CurrentTimestamp()
		result := tx.Model(&domain.SupplierQuotation{}).
			Where("id = ? AND status = ?", quotationID, domain.QuotationStatusSubmitted).
			Update(map[string]interface{}{"status": domain.QuotationStatusAccepted, "decide_time": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrQuotationConflict
		}

		if err := tx.Where("project_id = ? AND equipment_type = ? AND status IN (?) AND id != ?",
			projectID, record.EquipmentType,
			[]string{domain.QuotationStatusPending, domain.QuotationStatusSubmitted}, quotationID).
			Find(&losers).Error; err != nil {
			return err
		}
		if len(losers) > 0 {
			if err := tx.Model(&domain.SupplierQuotation{}).
				Where("project_id = ? AND equipment_type = ? AND status IN (?) AND id != ?",
					projectID, record.EquipmentType,
					[]string{domain.QuotationStatusPending, domain.QuotationStatusSubmitted}, quotationID).
				Update(map[string]interface{}{"status": domain.QuotationStatusRejected, "decide_time": now}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&domain.EventProject{}).Where(&domain.EventProject{ID: projectID}).
			Update(map[string]interface{}{
				"equipment_supplier_id": record.SupplierID,
				"total_equipment_cost":  record.SupplierPrice,
			}).Error; err != nil {
			return err
		}
		if err := team.RecomputeProjectTotalsFunc(tx, projectID); err != nil {
			return err
		}

		if err := tx.Where(&domain.SupplierQuotation{ID: quotationID}).First(&accepted).Error; err != nil {
			return err
		}
		if err := tx.Where(&domain.EventProject{ID: projectID}).First(&project).Error; err != nil {
			return err
		}

		ev, err = event.CreateEvent("supplier_quotation", accepted.ID, project.ProjectNumber+"/"+accepted.EquipmentType,
			event.EventCategoryStatusUpdated,
			[]event.UpdatedProperty{{PropertyName: "Status",
				OldValue: domain.QuotationStatusSubmitted, NewValue: domain.QuotationStatusAccepted}},
			&sec.Identity, tx)
		return err
	})
	if err1 != nil {
		if isLockConflict(err1) {
			return nil, bizerror.ErrQuotationConflict
		}
		return nil, err1
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	notifyDecision(&project, &accepted, losers)
	return &accepted, nil
}

// two accepts racing on sibling quotations of the same equipment type lock
// rows in opposite order, InnoDB aborts one as a deadlock (error 1213).
// The aborted accept lost the race, so it surfaces as the usual conflict.
func isLockConflict(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1213
}

func RejectQuotation(projectID, quotationID types.ID, sec *session.Session) (*domain.SupplierQuotation, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var rejected domain.SupplierQuotation
	var project domain.EventProject
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var record domain.SupplierQuotation
		if err := tx.Where(&domain.SupplierQuotation{ID: quotationID}).First(&record).Error; err != nil {
			return err
		}
		if record.ProjectID != projectID {
			return bizerror.ErrNotFound
		}

		result := tx.Model(&domain.SupplierQuotation{}).
			Where("id = ? AND status IN (?)", quotationID,
				[]string{domain.QuotationStatusPending, domain.QuotationStatusSubmitted}).
			Update(map[string]interface{}{
				"status": domain.QuotationStatusRejected, "decide_time": types.CurrentTimestamp()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrQuotationConflict
		}

		if err := tx.Where(&domain.SupplierQuotation{ID: quotationID}).First(&rejected).Error; err != nil {
			return err
		}
		return tx.Where(&domain.EventProject{ID: projectID}).First(&project).Error
	})
	if err1 != nil {
		return nil, err1
	}

	var supplier domain.EquipmentSupplier
	if err := db.Where(&domain.EquipmentSupplier{ID: rejected.SupplierID}).First(&supplier).Error; err == nil {
		_ = notification.NotifyFunc(notification.BuildQuoteRejectedEmail(&project, &rejected, &supplier))
	}
	return &rejected, nil
}

func notifyDecision(project *domain.EventProject, winner *domain.SupplierQuotation, losers []domain.SupplierQuotation) {
	db := persistence.ActiveDataSourceManager.GormDB(nil)
	var supplier domain.EquipmentSupplier
	if err := db.Where(&domain.EquipmentSupplier{ID: winner.SupplierID}).First(&supplier).Error; err == nil {
		_ = notification.NotifyFunc(notification.BuildQuoteAcceptedEmail(project, winner, &supplier))
	}
	for i := range losers {
		var loser domain.EquipmentSupplier
		if err := db.Where(&domain.EquipmentSupplier{ID: losers[i].SupplierID}).First(&loser).Error; err == nil {
			_ = notification.NotifyFunc(notification.BuildQuoteRejectedEmail(project, &losers[i], &loser))
		}
	}
}

func findByToken(db *gorm.DB, token string) (*domain.SupplierQuotation, error) {
	var record domain.SupplierQuotation
	if err := db.Where(&domain.SupplierQuotation{AccessToken: token}).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// expireOverdue lazily marks undecided past-deadline quotations expired.
func expireOverdue(db *gorm.DB, projectID types.ID) error {
	return db.Model(&domain.SupplierQuotation{}).
		Where("project_id = ? AND status IN (?) AND valid_until < ?", projectID,
			[]string{domain.QuotationStatusPending, domain.QuotationStatusSubmitted},
			types.CurrentTimestamp()).
		Update("status", domain.QuotationStatusExpired).Error
}
