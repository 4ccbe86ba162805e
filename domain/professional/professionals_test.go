package professional_test

import (
	"testing"

	"hrx/bizerror"
	"hrx/client/mapbox"
	"hrx/domain"
	"hrx/domain/professional"
	"hrx/event"
	"hrx/geo"
	"hrx/notification"
	"hrx/persistence"
	"hrx/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func professionalTestSetup(t *testing.T, testDatabase **testinfra.TestDatabase) *[]notification.Email {
	db := testinfra.StartMysqlTestDatabase("hrx")
	*testDatabase = db
	Expect(db.DS.GormDB(nil).AutoMigrate(&domain.Professional{}, &domain.ProfessionalHistory{},
		&event.EventRecord{}).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS

	event.InvokeHandlersFunc = func(record *event.EventRecord) []event.EventHandleResult {
		return nil
	}
	sentMails := []notification.Email{}
	notification.NotifyFunc = func(m notification.Email) error {
		sentMails = append(sentMails, m)
		return nil
	}
	return &sentMails
}

func professionalTestTeardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	notification.NotifyFunc = notification.Notify
	mapbox.GeocodeBestEffortFunc = mapbox.GeocodeBestEffort
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func buildRegistration(name, cpf, email string) *domain.ProfessionalRegistration {
	return &domain.ProfessionalRegistration{
		FullName: name, CPF: cpf, Email: email,
		Category: "som", Subcategory: "técnico", DailyRate: 700,
		City: "São Paulo", State: "SP",
	}
}

func TestRegisterProfessional(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("registration lands pending", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)

		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		Expect(record.ID).ToNot(BeZero())
		Expect(record.Status).To(Equal(domain.RegistrationStatusPending))
		Expect(record.DailyRate).To(Equal(700.0))
		Expect(record.CreateTime.IsZero()).To(BeFalse())
	})

	t.Run("duplicate cpf and email are named in the conflict", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)

		_, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())

		_, err = professional.RegisterProfessional(
			buildRegistration("Outro", "123.456.789-00", "outro@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrConflict{}))
		Expect(err.(*bizerror.ErrConflict).Code).To(Equal("professional.duplicate_cpf"))

		_, err = professional.RegisterProfessional(
			buildRegistration("Outro", "999.999.999-99", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrConflict{}))
		Expect(err.(*bizerror.ErrConflict).Code).To(Equal("professional.duplicate_email"))
	})

	t.Run("rejected records do not block re-registration", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)

		first, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		_, err = professional.RejectProfessional(first.ID,
			&domain.ProfessionalRejection{Reason: "documento ilegível"}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())

		_, err = professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
	})
}

func TestApproveProfessional(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("approve stamps the approver and mails once", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		sentMails := professionalTestSetup(t, &testDatabase)
		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())

		approved, err := professional.ApproveProfessional(record.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(approved.Status).To(Equal(domain.RegistrationStatusApproved))
		Expect(approved.ApprovedBy).To(Equal(types.ID(20)))
		Expect(approved.ApprovedTime.IsZero()).To(BeFalse())
		Expect(len(*sentMails)).To(Equal(1))
		Expect((*sentMails)[0].EmailType).To(Equal(notification.EmailTypeProfessionalApproved))

		// idempotent: no second mail, no second history entry
		_, err = professional.ApproveProfessional(record.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(*sentMails)).To(Equal(1))

		history, err := professional.ListHistory(record.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(history)).To(Equal(1))
		Expect(history[0].FromStatus).To(Equal(domain.RegistrationStatusPending))
		Expect(history[0].ToStatus).To(Equal(domain.RegistrationStatusApproved))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		_, err := professional.ApproveProfessional(404, testinfra.BuildSecCtx(20))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})
}

func TestRejectProfessional(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("reject stores the reason and the flagged documents", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		sentMails := professionalTestSetup(t, &testDatabase)
		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())

		rejected, err := professional.RejectProfessional(record.ID, &domain.ProfessionalRejection{
			Reason: "documento ilegível", FlaggedDocuments: domain.StringList{"rg", "cpf"},
		}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(rejected.Status).To(Equal(domain.RegistrationStatusRejected))
		Expect(rejected.RejectionReason).To(Equal("documento ilegível"))
		Expect(rejected.FlaggedDocuments).To(Equal(domain.StringList{"rg", "cpf"}))
		Expect(len(*sentMails)).To(Equal(1))
		Expect((*sentMails)[0].EmailType).To(Equal(notification.EmailTypeProfessionalRejected))

		history, err := professional.ListHistory(record.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(history)).To(Equal(1))
		Expect(history[0].Reason).To(Equal("documento ilegível"))
		Expect(history[0].FlaggedDocuments).To(Equal(domain.StringList{"rg", "cpf"}))
	})

	t.Run("reject without a reason is refused", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		_, err := professional.RejectProfessional(404,
			&domain.ProfessionalRejection{Reason: "   "}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(Equal(bizerror.ErrRejectReasonMissing))
	})

	t.Run("rejecting twice conflicts", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		_, err = professional.RejectProfessional(record.ID,
			&domain.ProfessionalRejection{Reason: "documento ilegível"}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())

		_, err = professional.RejectProfessional(record.ID,
			&domain.ProfessionalRejection{Reason: "de novo"}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrConflict{}))
		Expect(err.(*bizerror.ErrConflict).Code).To(Equal("professional.already_rejected"))
	})
}

func TestUpdateProfessional(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("updating a rejected record resubmits it", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		_, err = professional.RejectProfessional(record.ID, &domain.ProfessionalRejection{
			Reason: "documento ilegível", FlaggedDocuments: domain.StringList{"rg"},
		}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())

		rate := 850.0
		updated, err := professional.UpdateProfessional(record.ID, &domain.ProfessionalUpdating{
			Phone: "+55 11 99999-0000", DailyRate: &rate}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(updated.Status).To(Equal(domain.RegistrationStatusPending))
		Expect(updated.RejectionReason).To(BeEmpty())
		Expect(updated.FlaggedDocuments).To(BeEmpty())
		Expect(updated.Phone).To(Equal("+55 11 99999-0000"))
		Expect(updated.DailyRate).To(Equal(850.0))

		history, err := professional.ListHistory(record.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(history)).To(Equal(2))
		Expect(history[1].FromStatus).To(Equal(domain.RegistrationStatusRejected))
		Expect(history[1].ToStatus).To(Equal(domain.RegistrationStatusPending))
		Expect(history[1].Reason).To(Equal("resubmitted"))
	})

	t.Run("empty fields are left untouched", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())

		updated, err := professional.UpdateProfessional(record.ID,
			&domain.ProfessionalUpdating{City: "Campinas"}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(updated.City).To(Equal("Campinas"))
		Expect(updated.FullName).To(Equal("João"))
		Expect(updated.DailyRate).To(Equal(700.0))
	})
}

func TestQueryProfessionals(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("filters combine and paging caps at 100", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)

		first, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		_, err = professional.RegisterProfessional(
			buildRegistration("Ana", "222.222.222-22", "ana@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		_, err = professional.ApproveProfessional(first.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())

		page, err := professional.QueryProfessionals(&domain.ProfessionalQuery{
			Status: domain.RegistrationStatusApproved}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(page.Total).To(Equal(uint64(1)))
		Expect(page.Limit).To(Equal(20))
		records := page.List.([]domain.Professional)
		Expect(records[0].FullName).To(Equal("João"))

		page, err = professional.QueryProfessionals(&domain.ProfessionalQuery{Limit: 500},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(page.Total).To(Equal(uint64(2)))
		Expect(page.Limit).To(Equal(20))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		_, err := professional.QueryProfessionals(&domain.ProfessionalQuery{}, testinfra.BuildSecCtx(20))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})
}

func TestNearbyProfessionals(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("only approved professionals inside the radius, nearest first", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		db := persistence.ActiveDataSourceManager.GormDB(nil)

		seed := func(id types.ID, name, status string, lat, lon float64) {
			Expect(db.Create(&domain.Professional{ID: id, FullName: name, CPF: name, Email: name + "@example.com",
				Category: "som", Status: status, Latitude: lat, Longitude: lon,
				CreateTime: types.CurrentTimestamp(), UpdateTime: types.CurrentTimestamp()}).Error).To(BeNil())
		}
		// São Paulo center, Campinas ~88 km away, Rio ~360 km away
		seed(1, "centro", domain.RegistrationStatusApproved, -23.5505, -46.6333)
		seed(2, "campinas", domain.RegistrationStatusApproved, -22.9099, -47.0626)
		seed(3, "rio", domain.RegistrationStatusApproved, -22.9068, -43.1729)
		seed(4, "pendente", domain.RegistrationStatusPending, -23.5505, -46.6333)

		center := geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}
		matches, err := professional.NearbyProfessionals(center, 100, "som", testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(matches)).To(Equal(2))
		Expect(matches[0].FullName).To(Equal("centro"))
		Expect(matches[0].DistanceKm).To(Equal(0.0))
		Expect(matches[1].FullName).To(Equal("campinas"))
		Expect(matches[1].DistanceKm).To(BeNumerically("~", 88, 5))
	})

	t.Run("registration pins the city so nearby finds it", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)

		geocoded := []string{}
		mapbox.GeocodeBestEffortFunc = func(address string) (geo.Coordinates, bool) {
			geocoded = append(geocoded, address)
			if address == "Campinas - SP" {
				return geo.Coordinates{Latitude: -22.9099, Longitude: -47.0626}, true
			}
			return geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}, true
		}

		record, err := professional.RegisterProfessional(
			buildRegistration("João", "123.456.789-00", "joao@example.com"), testinfra.BuildSecCtx(0))
		Expect(err).To(BeNil())
		Expect(geocoded).To(Equal([]string{"São Paulo - SP"}))
		Expect(record.Latitude).To(Equal(-23.5505))
		Expect(record.Longitude).To(Equal(-46.6333))

		_, err = professional.ApproveProfessional(record.ID, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())

		center := geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}
		matches, err := professional.NearbyProfessionals(center, 100, "som", testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(matches)).To(Equal(1))
		Expect(matches[0].ID).To(Equal(record.ID))
		Expect(matches[0].DistanceKm).To(Equal(0.0))

		// moving to another city moves the pin
		updated, err := professional.UpdateProfessional(record.ID,
			&domain.ProfessionalUpdating{City: "Campinas"}, testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(geocoded[len(geocoded)-1]).To(Equal("Campinas - SP"))
		Expect(updated.Latitude).To(Equal(-22.9099))
		Expect(updated.Longitude).To(Equal(-47.0626))

		matches, err = professional.NearbyProfessionals(center, 100, "som", testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(matches)).To(Equal(1))
		Expect(matches[0].DistanceKm).To(BeNumerically("~", 88, 5))
	})

	t.Run("category filter and default radius", func(t *testing.T) {
		defer professionalTestTeardown(t, testDatabase)
		professionalTestSetup(t, &testDatabase)
		db := persistence.ActiveDataSourceManager.GormDB(nil)
		Expect(db.Create(&domain.Professional{ID: 1, FullName: "centro", CPF: "1", Email: "c@example.com",
			Category: "iluminação", Status: domain.RegistrationStatusApproved,
			Latitude: -23.5505, Longitude: -46.6333,
			CreateTime: types.CurrentTimestamp(), UpdateTime: types.CurrentTimestamp()}).Error).To(BeNil())

		center := geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}
		matches, err := professional.NearbyProfessionals(center, 0, "som", testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(matches)).To(Equal(0))

		matches, err = professional.NearbyProfessionals(center, 0, "", testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(len(matches)).To(Equal(1))
	})
}
