// api/service/services.go
package service

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/warden-labs/warden/api/audit"
	"github.com/warden-labs/warden/api/dao"
	"github.com/warden-labs/warden/api/model"
	"github.com/warden-labs/warden/api/policy/checker"
	"github.com/warden-labs/warden/api/policy/engine"
	"github.com/warden-labs/warden/api/policy/execution"
	"github.com/warden-labs/warden/api/policy/state"
	"github.com/warden-labs/warden/api/util"
)

type Services struct {
	Template   ITemplateService
	Evaluation IEvaluationService
	Proposal   IProposalService
	Audit      audit.Service
	Broker     *checker.ApprovalBroker
}

func InitializeServices(
	driver neo4j.Driver,
	store state.Store,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	eventBus *util.EventBus,
) (*Services, error) {
	templateDAO := dao.NewTemplateDAO(driver)
	proposalDAO := dao.NewProposalDAO(driver)
	var proposals model.ProposalSource = proposalDAO

	broker := checker.NewApprovalBroker()
	broker.SetNotifier(func(p *checker.PendingRequest) {
		eventBus.Publish(context.Background(), util.EventApprovalOpened, p)
	})
	registry := engine.NewRegistry(engine.Dependencies{
		Store:     store,
		Proposals: proposals,
		Broker:    broker,
	})
	evaluator := engine.NewEvaluator(registry)
	scheduler := execution.NewScheduler()

	templateService := NewTemplateService(templateDAO, validationUtil, cacheService, eventBus)

	services := &Services{
		Template:   templateService,
		Evaluation: NewEvaluationService(templateService, evaluator, store, broker, scheduler, auditService, eventBus),
		Proposal:   NewProposalService(proposalDAO),
		Audit:      auditService,
		Broker:     broker,
	}

	return services, nil
}
