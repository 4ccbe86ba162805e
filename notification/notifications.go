package notification

import (
	"hrx/client/resend"
	"hrx/idgen"
	"hrx/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	emailIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	// NotifyFunc is the capability workflow code depends on; tests and
	// disabled environments substitute it.
	NotifyFunc = Notify
)

// Notify is best-effort: provider failures are recorded and logged, the
// returned error exists for callers that want to surface the attempt.
func Notify(m Email) error {
	record := EmailRecord{
		ID:             idgen.NextID(emailIdWorker),
		ProjectID:      m.ProjectID,
		QuotationID:    m.QuotationID,
		RecipientType:  m.RecipientType,
		RecipientEmail: m.RecipientEmail,
		EmailType:      m.EmailType,
		Subject:        m.Subject,
		Status:         EmailStatusSent,
		CreateTime:     types.CurrentTimestamp(),
	}

	providerId, err := resend.SendFunc(resend.Mail{To: []string{m.RecipientEmail}, Subject: m.Subject, Html: m.Html})
	if err != nil {
		logrus.Warnf("send email %q to %s failed: %v", m.EmailType, m.RecipientEmail, err)
		record.Status = EmailStatusFailed
		record.FailureCause = err.Error()
	} else {
		record.ProviderId = providerId
	}

	if dbErr := persistence.ActiveDataSourceManager.GormDB(nil).Create(&record).Error; dbErr != nil {
		logrus.Errorf("record email attempt %q to %s failed: %v", m.EmailType, m.RecipientEmail, dbErr)
	}
	return err
}
