package indices

import (
	"fmt"

	"hrx/client/es"
	"hrx/domain"
	"hrx/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	ProfessionalIndexName = "professionals"
)

// ProfessionalDocument is the searchable projection of a professional.
type ProfessionalDocument struct {
	domain.Professional
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexProfessionals(records []domain.Professional, s *session.Session) error {
	docs := make([]ProfessionalDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, ProfessionalDocument{Professional: r})
	}

	if err := saveProfessionalDocuments(docs, s); err != nil {
		return err
	}
	return nil
}

func saveProfessionalDocuments(docs []ProfessionalDocument, s *session.Session) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range docs {
		if err := es.IndexFunc(ProfessionalIndexName, doc.ID, doc, s); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index professional %d %s %s\n", doc.ID, doc.FullName, err)
		} else {
			logrus.Infof("index professional %d %s successfully\n", doc.ID, doc.FullName)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
