package professional

import (
	"io"
	"io/ioutil"
	"strings"

	"hrx/bizerror"
	"hrx/client/s3"
	"hrx/session"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
)

// registration document types accepted for upload
var DocumentTypes = []string{"rg", "cpf", "proof_of_residence", "certificate", "photo"}

var (
	UploadDocumentFunc = UploadDocument
	FetchDocumentFunc  = FetchDocument
	ListDocumentsFunc  = ListDocuments
)

func documentKey(professionalID types.ID, docType string) string {
	return "professionals/" + professionalID.String() + "/" + docType
}

func validDocumentType(docType string) bool {
	for _, t := range DocumentTypes {
		if t == docType {
			return true
		}
	}
	return false
}

func UploadDocument(professionalID types.ID, docType string, r io.Reader, sec *session.Session) error {
	if !validDocumentType(docType) {
		return &bizerror.ErrInvalidArguments{Violations: []bizerror.FieldViolation{
			{Field: "documentType", Message: "unknown document type " + docType},
		}}
	}
	return s3.PutObjectFunc(documentKey(professionalID, docType), r, sec)
}

func FetchDocument(professionalID types.ID, docType string, sec *session.Session) ([]byte, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	r, err := s3.GetObjectFunc(documentKey(professionalID, docType), sec)
	if err != nil {
		if serErr, ok := err.(oss.ServiceError); ok && serErr.Code == "NoSuchKey" {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// ListDocuments returns the document types present for a professional.
func ListDocuments(professionalID types.ID, sec *session.Session) ([]string, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	prefix := "professionals/" + professionalID.String() + "/"
	keys, err := s3.ListObjectFunc(prefix, sec)
	if err != nil {
		return nil, err
	}
	docTypes := make([]string, 0, len(keys))
	for _, k := range keys {
		docTypes = append(docTypes, strings.TrimPrefix(k, prefix))
	}
	return docTypes, nil
}
