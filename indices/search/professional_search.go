package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"hrx/bizerror"
	"hrx/client/es"
	"hrx/domain"
	"hrx/indices"
	"hrx/session"
)

var (
	SearchProfessionalsFunc = SearchProfessionals
)

func SearchProfessionals(q domain.ProfessionalSearch, s *session.Session) ([]indices.ProfessionalDocument, error) {
	if !s.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}

	filters := make([]es.H, 0, 4)
	if q.Name != "" {
		filters = append(filters, es.H{"match": es.H{"fullName": es.H{"query": q.Name, "operator": "AND"}}})
	}
	if q.Category != "" {
		filters = append(filters, es.H{"term": es.H{"category": q.Category}})
	}
	if q.City != "" {
		filters = append(filters, es.H{"term": es.H{"city": q.City}})
	}
	if q.Status != "" {
		filters = append(filters, es.H{"term": es.H{"status": q.Status}})
	}

	sorts := make([]es.H, 0, 1)
	sorts = append(sorts, es.H{"createTime": es.H{"order": "desc"}})

	root := es.H{"bool": es.H{"filter": filters}}
	r, err := es.SearchFunc(indices.ProfessionalIndexName, es.H{"size": 10000, "query": root, "sort": sorts}, s)
	if err != nil {
		return nil, err
	}

	docs := make([]indices.ProfessionalDocument, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		d := indices.ProfessionalDocument{}
		if err := json.NewDecoder(strings.NewReader(string(hit.Source))).Decode(&d); err != nil {
			return nil, fmt.Errorf(string(hit.Source))
		}
		docs = append(docs, d)
	}
	return docs, nil
}
