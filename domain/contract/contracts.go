package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/idgen"
	"hrx/notification"
	"hrx/persistence"
	"hrx/session"

	"github.com/dgrijalva/jwt-go"
	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const SignatureTokenExpiration = 7 * 24 * time.Hour

var (
	contractIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	// SigningSecret signs contract signature tokens; Bootstrap loads it.
	SigningSecret []byte

	GenerateContractFunc = GenerateContract
	DetailContractFunc   = DetailContract
	SendForSignatureFunc = SendForSignature
	SignContractFunc     = SignContract
)

func Bootstrap() error {
	secret := os.Getenv("CONTRACT_SIGNING_SECRET")
	if secret == "" {
		return fmt.Errorf("environment variable CONTRACT_SIGNING_SECRET is not set")
	}
	SigningSecret = []byte(secret)
	return nil
}

// GenerateContract snapshots the approved project into a contract awaiting
// signature. A project carries at most one contract.
func GenerateContract(projectID types.ID, sec *session.Session) (*domain.Contract, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var record *domain.Contract
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		var project domain.EventProject
		if err := tx.Where(&domain.EventProject{ID: projectID}).First(&project).Error; err != nil {
			return err
		}
		if project.Status != domain.ProjectStatusApproved {
			return bizerror.ErrProjectNotApproved
		}

		var existing domain.Contract
		err := tx.Where(&domain.Contract{ProjectID: projectID}).First(&existing).Error
		if err == nil {
			return &bizerror.ErrConflict{Code: "contract.exists",
				Message: "project " + project.ProjectNumber + " already has a contract"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var accepted domain.SupplierQuotation
		equipmentSnapshot := domain.EquipmentNeeds{}
		var quotationID types.ID
		err = tx.Where("project_id = ? AND status = ?", projectID, domain.QuotationStatusAccepted).
			First(&accepted).Error
		if err == nil {
			quotationID = accepted.ID
			equipmentSnapshot = accepted.RequestedItems
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var members []domain.TeamMember
		if err := tx.Where(&domain.TeamMember{ProjectID: projectID}).Find(&members).Error; err != nil {
			return err
		}
		teamSnapshot := make(domain.TeamSnapshot, 0, len(members))
		for _, m := range members {
			teamSnapshot = append(teamSnapshot, domain.TeamSnapshotEntry{
				Role: m.Role, Category: m.Category,
				Quantity: m.Quantity, DurationDays: m.DurationDays,
				DailyRate: m.DailyRate, TotalCost: m.TotalCost,
			})
		}

		now := types.CurrentTimestamp()
		id := idgen.NextID(contractIdWorker)
		expireTime := now.Time().Add(SignatureTokenExpiration)
		token, err := newSignatureToken(id, expireTime)
		if err != nil {
			return err
		}

		record = &domain.Contract{
			ID:        id,
			ProjectID: projectID,

			QuotationID: quotationID,

			ClientName:       project.ClientName,
			ClientEmail:      project.ClientEmail,
			TotalClientPrice: project.TotalClientPrice,

			TeamSnapshot:      teamSnapshot,
			EquipmentSnapshot: equipmentSnapshot,

			Status: domain.ContractStatusAwaitingSignature,

			SignatureToken:  token,
			TokenExpireTime: types.Timestamp(expireTime),

			CreateTime: now,
		}
		return tx.Create(record).Error
	})
	if err1 != nil {
		return nil, err1
	}
	return record, nil
}

func DetailContract(projectID types.ID, sec *session.Session) (*domain.Contract, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	record, err := expireIfOverdue(db, projectID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SendForSignature mails the signature link. Re-sending before expiry
// reuses the live token; after expiry the token is refreshed in place, a
// parallel signature flow is never opened.
func SendForSignature(projectID types.ID, sec *session.Session) (*domain.Contract, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	var record domain.Contract
	var project domain.EventProject
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Contract{ProjectID: projectID}).First(&record).Error; err != nil {
			return err
		}
		if record.Status == domain.ContractStatusSigned {
			return bizerror.ErrAlreadySigned
		}

		now := types.CurrentTimestamp()
		changes := map[string]interface{}{"last_send_time": now}
		if record.TokenExpireTime.Time().Before(now.Time()) {
			expireTime := now.Time().Add(SignatureTokenExpiration)
			token, err := newSignatureToken(record.ID, expireTime)
			if err != nil {
				return err
			}
			changes["signature_token"] = token
			changes["token_expire_time"] = types.Timestamp(expireTime)
			changes["status"] = domain.ContractStatusAwaitingSignature
		}
		if err := tx.Model(&domain.Contract{}).Where(&domain.Contract{ID: record.ID}).
			Update(changes).Error; err != nil {
			return err
		}
		if err := tx.Where(&domain.Contract{ID: record.ID}).First(&record).Error; err != nil {
			return err
		}
		return tx.Where(&domain.EventProject{ID: projectID}).First(&project).Error
	})
	if err1 != nil {
		return nil, err1
	}

	_ = notification.NotifyFunc(notification.BuildContractSignatureEmail(&project, &record))
	return &record, nil
}

// SignContract verifies the token and flips the contract to signed exactly
// once; a second signer conflicts.
func SignContract(contractID types.ID, signing *domain.ContractSigning, ctx *session.Session) (*domain.Contract, error) {
	var record domain.Contract
	db := persistence.ActiveDataSourceManager.GormDB(ctx.Context)
	err1 := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Contract{ID: contractID}).First(&record).Error; err != nil {
			return err
		}
		if record.Status == domain.ContractStatusSigned {
			return bizerror.ErrAlreadySigned
		}
		if record.SignatureToken != signing.Token {
			return bizerror.ErrSignatureInvalid
		}
		if err := verifySignatureToken(contractID, signing.Token); err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		if record.TokenExpireTime.Time().Before(now.Time()) {
			return bizerror.ErrSignatureExpired
		}

		hash := sha256.Sum256([]byte(fmt.Sprintf("%v:%s:%s:%s",
			contractID, signing.Token, signing.SignerName, now.Time().Format(time.RFC3339Nano))))
		result := tx.Model(&domain.Contract{}).
			Where("id = ? AND status = ?", contractID, domain.ContractStatusAwaitingSignature).
			Update(map[string]interface{}{
				"status":         domain.ContractStatusSigned,
				"signer_name":    signing.SignerName,
				"signature_hash": hex.EncodeToString(hash[:]),
				"sign_time":      now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrAlreadySigned
		}
		return tx.Where(&domain.Contract{ID: contractID}).First(&record).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if err := markProjectExecutable(db, record.ProjectID); err != nil {
		return nil, err
	}
	return &record, nil
}

// a signed contract moves the project into execution when allowed
func markProjectExecutable(db *gorm.DB, projectID types.ID) error {
	var project domain.EventProject
	if err := db.Where(&domain.EventProject{ID: projectID}).First(&project).Error; err != nil {
		return err
	}
	if !domain.ProjectStateMachine.CanTransit(project.Status, domain.ProjectStatusInExecution) {
		return nil
	}
	return db.Model(&domain.EventProject{}).
		Where("id = ? AND status = ?", projectID, project.Status).
		Update(map[string]interface{}{
			"status": domain.ProjectStatusInExecution, "update_time": types.CurrentTimestamp()}).Error
}

func newSignatureToken(contractID types.ID, expireTime time.Time) (string, error) {
	if len(SigningSecret) == 0 {
		return "", errors.New("contract signing secret is not configured")
	}
	claims := jwt.StandardClaims{
		Subject:   contractID.String(),
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: expireTime.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(SigningSecret)
}

func verifySignatureToken(contractID types.ID, token string) error {
	claims := jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return SigningSecret, nil
	})
	if err != nil {
		validationError := &jwt.ValidationError{}
		if errors.As(err, &validationError) && validationError.Errors&jwt.ValidationErrorExpired != 0 {
			return bizerror.ErrSignatureExpired
		}
		return bizerror.ErrSignatureInvalid
	}
	if !parsed.Valid || claims.Subject != contractID.String() {
		return bizerror.ErrSignatureInvalid
	}
	return nil
}

func expireIfOverdue(db *gorm.DB, projectID types.ID) (*domain.Contract, error) {
	var record domain.Contract
	if err := db.Where(&domain.Contract{ProjectID: projectID}).First(&record).Error; err != nil {
		return nil, err
	}
	if record.Status == domain.ContractStatusAwaitingSignature &&
		record.TokenExpireTime.Time().Before(time.Now()) {
		if err := db.Model(&domain.Contract{}).
			Where("id = ? AND status = ?", record.ID, domain.ContractStatusAwaitingSignature).
			Update("status", domain.ContractStatusExpired).Error; err != nil {
			return nil, err
		}
		if err := db.Where(&domain.Contract{ID: record.ID}).First(&record).Error; err != nil {
			return nil, err
		}
	}
	return &record, nil
}
