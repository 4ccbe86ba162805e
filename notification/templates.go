package notification

import (
	"fmt"
	"html"
	"os"
	"strings"

	"hrx/domain"
)

// PublicBaseURL prefixes the links embedded in outgoing mails.
func PublicBaseURL() string {
	if u := os.Getenv("PUBLIC_BASE_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:3000"
}

// AdminNotifyEmail is the operations inbox for urgent alerts.
func AdminNotifyEmail() string {
	if e := os.Getenv("ADMIN_NOTIFY_EMAIL"); e != "" {
		return e
	}
	return "contato@hrx.com.br"
}

func BuildUrgentProjectEmail(p *domain.EventProject) Email {
	body := fmt.Sprintf(`<h1>🚨 Projeto Urgente</h1>
<p>O projeto <strong>%s</strong> (%s) foi marcado como urgente e precisa de atenção imediata.</p>
<ul>
<li>Cliente: %s</li>
<li>Evento: %s em %s/%s</li>
<li>Data: %s</li>
</ul>`,
		html.EscapeString(p.ProjectNumber), html.EscapeString(p.EventName),
		html.EscapeString(p.ClientName),
		html.EscapeString(p.EventName), html.EscapeString(p.VenueCity), html.EscapeString(p.VenueState),
		p.EventDate.Time().Format("02/01/2006"))

	return Email{
		ProjectID:      p.ID,
		RecipientType:  RecipientTypeAdmin,
		RecipientEmail: AdminNotifyEmail(),
		EmailType:      EmailTypeQuoteUrgentAdmin,
		Subject:        fmt.Sprintf("🚨 Cotação Urgente - %s", p.ProjectNumber),
		Html:           body,
	}
}

func BuildQuoteRequestEmail(p *domain.EventProject, q *domain.SupplierQuotation, s *domain.EquipmentSupplier) Email {
	link := fmt.Sprintf("%s/orcamento/%s", PublicBaseURL(), q.AccessToken)
	body := fmt.Sprintf(`<h1>Solicitação de Cotação</h1>
<p>Olá %s,</p>
<p>A HRX convida a %s a cotar o fornecimento de <strong>%s</strong> para o evento
<strong>%s</strong> em %s/%s, no dia %s.</p>
<p><a href="%s">Responder cotação</a></p>
<p>Esta cotação é válida até %s.</p>`,
		html.EscapeString(s.ContactName), html.EscapeString(s.CompanyName),
		html.EscapeString(q.EquipmentType),
		html.EscapeString(p.EventName), html.EscapeString(p.VenueCity), html.EscapeString(p.VenueState),
		p.EventDate.Time().Format("02/01/2006"),
		link, q.ValidUntil.Time().Format("02/01/2006"))

	return Email{
		ProjectID:      p.ID,
		QuotationID:    q.ID,
		RecipientType:  RecipientTypeSupplier,
		RecipientEmail: s.Email,
		EmailType:      EmailTypeQuoteRequest,
		Subject:        fmt.Sprintf("Solicitação de Cotação - %s (%s)", p.EventName, p.ProjectNumber),
		Html:           body,
	}
}

func BuildQuoteAcceptedEmail(p *domain.EventProject, q *domain.SupplierQuotation, s *domain.EquipmentSupplier) Email {
	body := fmt.Sprintf(`<h1>✅ Cotação Aceita!</h1>
<p>Olá %s,</p>
<p>Sua cotação de <strong>R$ %.2f</strong> para o evento <strong>%s</strong> (%s) foi aceita.
Nossa equipe entrará em contato para alinhar a entrega.</p>`,
		html.EscapeString(s.ContactName), q.SupplierPrice,
		html.EscapeString(p.EventName), html.EscapeString(p.ProjectNumber))

	return Email{
		ProjectID:      p.ID,
		QuotationID:    q.ID,
		RecipientType:  RecipientTypeSupplier,
		RecipientEmail: s.Email,
		EmailType:      EmailTypeQuoteAccepted,
		Subject:        fmt.Sprintf("✅ Cotação Aceita - %s", p.EventName),
		Html:           body,
	}
}

func BuildQuoteRejectedEmail(p *domain.EventProject, q *domain.SupplierQuotation, s *domain.EquipmentSupplier) Email {
	body := fmt.Sprintf(`<h1>Cotação Não Selecionada</h1>
<p>Olá %s,</p>
<p>Agradecemos sua cotação para o evento <strong>%s</strong> (%s).
Desta vez optamos por outra proposta, mas contamos com a %s em próximas oportunidades.</p>`,
		html.EscapeString(s.ContactName),
		html.EscapeString(p.EventName), html.EscapeString(p.ProjectNumber),
		html.EscapeString(s.CompanyName))

	return Email{
		ProjectID:      p.ID,
		QuotationID:    q.ID,
		RecipientType:  RecipientTypeSupplier,
		RecipientEmail: s.Email,
		EmailType:      EmailTypeQuoteRejected,
		Subject:        fmt.Sprintf("Cotação Não Selecionada - %s", p.EventName),
		Html:           body,
	}
}

func BuildProposalEmail(p *domain.EventProject) Email {
	body := fmt.Sprintf(`<h1>Proposta Comercial</h1>
<p>Olá %s,</p>
<p>Segue a proposta da HRX para o evento <strong>%s</strong> (%s):</p>
<ul>
<li>Equipe: R$ %.2f</li>
<li>Equipamentos: R$ %.2f</li>
<li><strong>Total: R$ %.2f</strong></li>
</ul>
<p>Ficamos à disposição para qualquer ajuste.</p>`,
		html.EscapeString(p.ClientName),
		html.EscapeString(p.EventName), html.EscapeString(p.ProjectNumber),
		p.TotalTeamCost, p.TotalEquipmentCost, p.TotalClientPrice)

	return Email{
		ProjectID:      p.ID,
		RecipientType:  RecipientTypeClient,
		RecipientEmail: p.ClientEmail,
		EmailType:      EmailTypeProposalSent,
		Subject:        fmt.Sprintf("Proposta Comercial - %s (%s)", p.EventName, p.ProjectNumber),
		Html:           body,
	}
}

func BuildProfessionalApprovedEmail(prof *domain.Professional) Email {
	body := fmt.Sprintf(`<h1>🎉 Parabéns, %s!</h1>
<p>Seu cadastro como <strong>%s</strong> foi aprovado.
A partir de agora você pode ser escalado para eventos da HRX em %s/%s.</p>`,
		html.EscapeString(prof.FullName), html.EscapeString(prof.Category),
		html.EscapeString(prof.City), html.EscapeString(prof.State))

	return Email{
		RecipientType:  RecipientTypeProfessional,
		RecipientEmail: prof.Email,
		EmailType:      EmailTypeProfessionalApproved,
		Subject:        "🎉 Parabéns! Seu cadastro foi aprovado - HRX",
		Html:           body,
	}
}

func BuildProfessionalRejectedEmail(prof *domain.Professional, rejection domain.ProfessionalRejection) Email {
	var docs strings.Builder
	for _, d := range rejection.FlaggedDocuments {
		docs.WriteString("<li>" + html.EscapeString(d) + "</li>")
	}
	docSection := ""
	if docs.Len() > 0 {
		docSection = "<p>Documentos com pendências:</p><ul>" + docs.String() + "</ul>"
	}
	body := fmt.Sprintf(`<h1>Atualização do seu cadastro</h1>
<p>Olá %s,</p>
<p>Seu cadastro não pôde ser aprovado neste momento.</p>
<p>Motivo: %s</p>
%s
<p>Você pode corrigir as pendências e reenviar seu cadastro.</p>`,
		html.EscapeString(prof.FullName), html.EscapeString(rejection.Reason), docSection)

	return Email{
		RecipientType:  RecipientTypeProfessional,
		RecipientEmail: prof.Email,
		EmailType:      EmailTypeProfessionalRejected,
		Subject:        "Atualização sobre seu cadastro - HRX",
		Html:           body,
	}
}

func BuildContractSignatureEmail(p *domain.EventProject, contract *domain.Contract) Email {
	link := fmt.Sprintf("%s/contratos/%d/assinar?token=%s", PublicBaseURL(), contract.ID, contract.SignatureToken)
	body := fmt.Sprintf(`<h1>Contrato para Assinatura</h1>
<p>Olá %s,</p>
<p>O contrato do evento <strong>%s</strong> (%s) está pronto para assinatura.</p>
<p><a href="%s">Assinar contrato</a></p>
<p>O link de assinatura expira em %s.</p>`,
		html.EscapeString(p.ClientName),
		html.EscapeString(p.EventName), html.EscapeString(p.ProjectNumber),
		link, contract.TokenExpireTime.Time().Format("02/01/2006 15:04"))

	return Email{
		ProjectID:      p.ID,
		RecipientType:  RecipientTypeClient,
		RecipientEmail: p.ClientEmail,
		EmailType:      EmailTypeContractSignature,
		Subject:        fmt.Sprintf("Contrato para Assinatura - %s", p.EventName),
		Html:           body,
	}
}
