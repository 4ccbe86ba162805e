package domain_test

import (
	"testing"

	"hrx/domain"

	. "github.com/onsi/gomega"
)

func TestDefaultProfitMargin(t *testing.T) {
	RegisterTestingT(t)

	t.Run("margin defaults depend on urgency", func(t *testing.T) {
		Expect(domain.DefaultProfitMargin(false)).To(Equal(35.0))
		Expect(domain.DefaultProfitMargin(true)).To(Equal(80.0))
	})
}

func TestClientPrice(t *testing.T) {
	RegisterTestingT(t)

	t.Run("margin is applied on top of cost", func(t *testing.T) {
		Expect(domain.ClientPrice(1000, 35)).To(Equal(1350.0))
		Expect(domain.ClientPrice(1000, 80)).To(Equal(1800.0))
		Expect(domain.ClientPrice(1000, 0)).To(Equal(1000.0))
	})

	t.Run("result is rounded to cents", func(t *testing.T) {
		Expect(domain.ClientPrice(99.99, 35)).To(Equal(134.99))
		Expect(domain.ClientPrice(0.01, 35)).To(Equal(0.01))
	})

	t.Run("zero cost prices at zero regardless of margin", func(t *testing.T) {
		Expect(domain.ClientPrice(0, 80)).To(BeZero())
	})
}

func TestTeamMemberCostOf(t *testing.T) {
	RegisterTestingT(t)

	t.Run("cost is rate times quantity times days", func(t *testing.T) {
		m := domain.TeamMember{DailyRate: 350, Quantity: 2, DurationDays: 3}
		Expect(m.CostOf()).To(Equal(2100.0))
	})

	t.Run("fractional rates round to cents", func(t *testing.T) {
		m := domain.TeamMember{DailyRate: 333.335, Quantity: 1, DurationDays: 2}
		Expect(m.CostOf()).To(Equal(666.67))
	})

	t.Run("zero quantity or days costs nothing", func(t *testing.T) {
		Expect((&domain.TeamMember{DailyRate: 100, Quantity: 0, DurationDays: 5}).CostOf()).To(BeZero())
		Expect((&domain.TeamMember{DailyRate: 100, Quantity: 5, DurationDays: 0}).CostOf()).To(BeZero())
	})
}

func TestProjectStateMachine(t *testing.T) {
	RegisterTestingT(t)

	t.Run("happy path walk", func(t *testing.T) {
		walk := []string{
			domain.ProjectStatusNew, domain.ProjectStatusAnalyzing, domain.ProjectStatusQuoting,
			domain.ProjectStatusQuoted, domain.ProjectStatusProposed, domain.ProjectStatusApproved,
			domain.ProjectStatusInExecution, domain.ProjectStatusCompleted,
		}
		for i := 0; i < len(walk)-1; i++ {
			Expect(domain.ProjectStateMachine.CanTransit(walk[i], walk[i+1])).To(BeTrue(), walk[i]+" -> "+walk[i+1])
		}
	})

	t.Run("quoted may fall back to quoting", func(t *testing.T) {
		Expect(domain.ProjectStateMachine.CanTransit(domain.ProjectStatusQuoted, domain.ProjectStatusQuoting)).To(BeTrue())
	})

	t.Run("no skipping and no regression from terminal states", func(t *testing.T) {
		Expect(domain.ProjectStateMachine.CanTransit(domain.ProjectStatusNew, domain.ProjectStatusQuoting)).To(BeFalse())
		Expect(domain.ProjectStateMachine.CanTransit(domain.ProjectStatusAnalyzing, domain.ProjectStatusApproved)).To(BeFalse())
		Expect(domain.ProjectStateMachine.CanTransit(domain.ProjectStatusCompleted, domain.ProjectStatusNew)).To(BeFalse())
		Expect(domain.ProjectStateMachine.CanTransit(domain.ProjectStatusCancelled, domain.ProjectStatusNew)).To(BeFalse())
	})

	t.Run("cancel is allowed from every non-terminal state", func(t *testing.T) {
		for _, from := range []string{
			domain.ProjectStatusNew, domain.ProjectStatusAnalyzing, domain.ProjectStatusQuoting,
			domain.ProjectStatusQuoted, domain.ProjectStatusProposed, domain.ProjectStatusApproved,
			domain.ProjectStatusInExecution,
		} {
			Expect(domain.ProjectStateMachine.CanTransit(from, domain.ProjectStatusCancelled)).To(BeTrue(), from)
		}
		Expect(domain.ProjectStateMachine.CanTransit(domain.ProjectStatusCompleted, domain.ProjectStatusCancelled)).To(BeFalse())
	})

	t.Run("unknown states are rejected", func(t *testing.T) {
		_, found := domain.ProjectStateMachine.FindState("archived")
		Expect(found).To(BeFalse())
	})
}

func TestProjectIsEditable(t *testing.T) {
	RegisterTestingT(t)

	editable := []string{
		domain.ProjectStatusNew, domain.ProjectStatusAnalyzing, domain.ProjectStatusQuoting,
		domain.ProjectStatusQuoted, domain.ProjectStatusProposed,
	}
	for _, s := range editable {
		Expect(domain.ProjectIsEditable(s)).To(BeTrue(), s)
	}
	frozen := []string{
		domain.ProjectStatusApproved, domain.ProjectStatusInExecution,
		domain.ProjectStatusCompleted, domain.ProjectStatusCancelled,
	}
	for _, s := range frozen {
		Expect(domain.ProjectIsEditable(s)).To(BeFalse(), s)
	}
}
