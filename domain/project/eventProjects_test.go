package project_test

import (
	"testing"
	"time"

	"hrx/bizerror"
	"hrx/domain"
	"hrx/domain/project"
	"hrx/event"
	"hrx/notification"
	"hrx/persistence"
	"hrx/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func projectTestSetup(t *testing.T, testDatabase **testinfra.TestDatabase) *[]notification.Email {
	db := testinfra.StartMysqlTestDatabase("hrx")
	*testDatabase = db
	Expect(db.DS.GormDB(nil).AutoMigrate(&domain.EventProject{}, &domain.ProjectNumberSequence{},
		&domain.TeamMember{}, &domain.SupplierQuotation{}, &domain.Contract{},
		&domain.Professional{}, &event.EventRecord{}).Error).To(BeNil())
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

func projectTestTeardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	notification.NotifyFunc = notification.Notify
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func buildProjectCreation() *domain.EventProjectCreation {
	return &domain.EventProjectCreation{
		ClientName: "Maria", ClientEmail: "maria@example.com",
		EventName: "Festival", EventType: "festival",
		EventDate:    types.Timestamp(time.Now().AddDate(0, 1, 0)),
		VenueAddress: "Av. Paulista, 1000", VenueCity: "São Paulo", VenueState: "SP",
		ProfessionalsNeeded: domain.ProfessionalNeeds{{Category: "sound", Quantity: 2}},
		EquipmentNeeded:     domain.EquipmentNeeds{{Type: "som", Quantity: 4}},
	}
}

func TestCreateProject(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("at least one need list must be non-empty", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		c := buildProjectCreation()
		c.ProfessionalsNeeded = nil
		c.EquipmentNeeded = nil
		_, err := project.CreateProject(c, testinfra.BuildSecCtx(10))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrInvalidArguments{}))
	})

	t.Run("margin defaults by urgency and accepts a valid override", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		p1, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p1.ProfitMargin).To(Equal(35.0))
		Expect(p1.Status).To(Equal(domain.ProjectStatusNew))

		urgent := buildProjectCreation()
		urgent.IsUrgent = true
		p2, err := project.CreateProject(urgent, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p2.ProfitMargin).To(Equal(80.0))

		override := 42.5
		c3 := buildProjectCreation()
		c3.ProfitMargin = &override
		p3, err := project.CreateProject(c3, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p3.ProfitMargin).To(Equal(42.5))

		bad := 101.0
		c4 := buildProjectCreation()
		c4.ProfitMargin = &bad
		_, err = project.CreateProject(c4, testinfra.BuildSecCtx(10))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrInvalidArguments{}))
	})

	t.Run("project numbers are issued sequentially", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		p1, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p1.ProjectNumber).To(Equal("PRJ-1"))

		p2, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p2.ProjectNumber).To(Equal("PRJ-2"))
	})

	t.Run("nested team is priced into the totals", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		c := buildProjectCreation()
		c.Team = []domain.TeamMemberCreation{
			{Role: "tech", Category: "sound", ExternalName: "a", DailyRate: 300, Quantity: 2, DurationDays: 2},
		}
		p, err := project.CreateProject(c, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p.TotalTeamCost).To(Equal(1200.0))
		Expect(p.TotalClientPrice).To(Equal(1620.0))
	})

	t.Run("urgent intake alerts the operations inbox", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		sentMails := projectTestSetup(t, &testDatabase)

		urgent := buildProjectCreation()
		urgent.IsUrgent = true
		_, err := project.CreateProject(urgent, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(len(*sentMails)).To(Equal(1))
		Expect((*sentMails)[0].EmailType).To(Equal(notification.EmailTypeQuoteUrgentAdmin))

		_, err = project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(len(*sentMails)).To(Equal(1))
	})
}

func TestTransitionProject(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("allowed walk stamps the status timestamps", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		p, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())

		for _, status := range []string{domain.ProjectStatusAnalyzing, domain.ProjectStatusQuoting, domain.ProjectStatusQuoted} {
			p, err = project.TransitionProject(p.ID, &domain.ProjectStatusUpdating{Status: status},
				testinfra.BuildAdminSecCtx(20))
			Expect(err).To(BeNil())
			Expect(p.Status).To(Equal(status))
		}
		Expect(p.QuotedTime.IsZero()).To(BeFalse())
		Expect(p.ApprovedTime.IsZero()).To(BeTrue())
	})

	t.Run("skipping states is rejected", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		p, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())

		_, err = project.TransitionProject(p.ID, &domain.ProjectStatusUpdating{Status: domain.ProjectStatusApproved},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(Equal(bizerror.ErrInvalidTransition))

		_, err = project.TransitionProject(p.ID, &domain.ProjectStatusUpdating{Status: "archived"},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(Equal(bizerror.ErrUnknownState))
	})

	t.Run("sending the proposal mails the client", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		sentMails := projectTestSetup(t, &testDatabase)

		p, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())

		for _, status := range []string{domain.ProjectStatusAnalyzing, domain.ProjectStatusQuoting,
			domain.ProjectStatusQuoted, domain.ProjectStatusProposed} {
			p, err = project.TransitionProject(p.ID, &domain.ProjectStatusUpdating{Status: status},
				testinfra.BuildAdminSecCtx(20))
			Expect(err).To(BeNil())
		}

		Expect(len(*sentMails)).To(Equal(1))
		Expect((*sentMails)[0].EmailType).To(Equal(notification.EmailTypeProposalSent))
		Expect((*sentMails)[0].RecipientEmail).To(Equal("maria@example.com"))
	})
}

func TestUpdateProject(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("margin change reprices the project", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		c := buildProjectCreation()
		c.Team = []domain.TeamMemberCreation{
			{Role: "tech", Category: "sound", ExternalName: "a", DailyRate: 1000},
		}
		p, err := project.CreateProject(c, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		Expect(p.TotalClientPrice).To(Equal(1350.0))

		newMargin := 50.0
		updated, err := project.UpdateProject(p.ID, &domain.EventProjectUpdating{ProfitMargin: &newMargin},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(updated.ProfitMargin).To(Equal(50.0))
		Expect(updated.TotalClientPrice).To(Equal(1500.0))
	})

	t.Run("margin override outside 0..100 is rejected", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		p, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())

		bad := -1.0
		_, err = project.UpdateProject(p.ID, &domain.EventProjectUpdating{ProfitMargin: &bad},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrInvalidArguments{}))
	})
}

func TestQueryProjects(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("filters and summary counts", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		_, err := project.CreateProject(buildProjectCreation(), testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())
		urgent := buildProjectCreation()
		urgent.IsUrgent = true
		urgent.ClientName = "Carlos"
		_, err = project.CreateProject(urgent, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())

		page, err := project.QueryProjects(&domain.EventProjectQuery{IsUrgent: "true"},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(page.Total).To(Equal(uint64(1)))
		summaries := page.List.([]domain.EventProjectSummary)
		Expect(summaries[0].ClientName).To(Equal("Carlos"))
		Expect(summaries[0].TeamCount).To(Equal(2))
		Expect(summaries[0].EquipmentCount).To(Equal(4))

		page, err = project.QueryProjects(&domain.EventProjectQuery{ClientName: "Mar"},
			testinfra.BuildAdminSecCtx(20))
		Expect(err).To(BeNil())
		Expect(page.Total).To(Equal(uint64(1)))
	})

	t.Run("listing requires the admin claim", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		_, err := project.QueryProjects(&domain.EventProjectQuery{}, testinfra.BuildSecCtx(10))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})
}

func TestDeleteProject(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("delete removes the project and its dependents", func(t *testing.T) {
		defer projectTestTeardown(t, testDatabase)
		projectTestSetup(t, &testDatabase)

		c := buildProjectCreation()
		c.Team = []domain.TeamMemberCreation{
			{Role: "tech", Category: "sound", ExternalName: "a", DailyRate: 100},
		}
		p, err := project.CreateProject(c, testinfra.BuildSecCtx(10))
		Expect(err).To(BeNil())

		Expect(project.DeleteProject(p.ID, testinfra.BuildAdminSecCtx(20))).To(BeNil())

		db := persistence.ActiveDataSourceManager.GormDB(nil)
		var projectCount, teamCount int
		Expect(db.Model(&domain.EventProject{}).Where("id = ?", p.ID).Count(&projectCount).Error).To(BeNil())
		Expect(db.Model(&domain.TeamMember{}).Where("project_id = ?", p.ID).Count(&teamCount).Error).To(BeNil())
		Expect(projectCount).To(BeZero())
		Expect(teamCount).To(BeZero())
	})
}
