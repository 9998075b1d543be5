// api/controller/controllers.go
package controller

import "github.com/warden-labs/warden/api/service"

type Controllers struct {
	Template   *TemplateController
	Evaluation *EvaluationController
	Proposal   *ProposalController
	Audit      *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Template:   NewTemplateController(services.Template),
		Evaluation: NewEvaluationController(services.Evaluation),
		Proposal:   NewProposalController(services.Proposal),
		Audit:      NewAuditController(services.Audit),
	}
}
