package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/content"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/portfolio"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/router"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/service"
)

// ErrEventBufferFull is returned by Publish when the listener cannot keep up.
var ErrEventBufferFull = errors.New("approval event buffer is full")

// Options configures a Manager.
type Options struct {
	ActMaxRetries       int
	EventBufferSize     int
	EventMaxElapsedTime time.Duration               // Give up redelivering an event after this long
	Snapshots           portfolio.SnapshotPublisher // Optional
}

// Manager wires the approval engine, the definition store and the portfolio
// projector, and delivers terminal approval events between them.
type Manager struct {
	directory   *auth.DirectoryService
	content     *content.Repository
	definitions *service.WorkflowDefinitionService
	approvals   *service.ApprovalRequestService
	projector   *portfolio.Projector

	workflowRouter  *router.WorkflowRouter
	approvalRouter  *router.ApprovalRouter
	portfolioRouter *portfolio.Router

	events     chan model.ApprovalEvent
	maxElapsed time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a Manager. Call StartEventListener to begin projecting
// approved requests onto portfolios.
func NewManager(db *gorm.DB, opts Options) *Manager {
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = 100
	}

	directory := auth.NewDirectoryService(db)
	contentRepo := content.NewRepository(db)
	definitions := service.NewWorkflowDefinitionService(db, directory)
	approvals := service.NewApprovalRequestService(db, service.NewWorkflowSelector(definitions), contentRepo, directory)
	approvals.SetMaxActRetries(opts.ActMaxRetries)

	projector := portfolio.NewProjector(db, contentRepo)
	if opts.Snapshots != nil {
		projector.SetSnapshotPublisher(opts.Snapshots)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		directory:   directory,
		content:     contentRepo,
		definitions: definitions,
		approvals:   approvals,
		projector:   projector,
		events:      make(chan model.ApprovalEvent, opts.EventBufferSize),
		maxElapsed:  opts.EventMaxElapsedTime,
		ctx:         ctx,
		cancel:      cancel,
	}
	approvals.SetEventPublisher(m)

	m.workflowRouter = router.NewWorkflowRouter(definitions)
	m.approvalRouter = router.NewApprovalRouter(approvals)
	m.portfolioRouter = portfolio.NewRouter(projector)

	return m
}

func (m *Manager) Directory() *auth.DirectoryService { return m.directory }
func (m *Manager) Content() *content.Repository { return m.content }
func (m *Manager) Definitions() *service.WorkflowDefinitionService { return m.definitions }
func (m *Manager) Approvals() *service.ApprovalRequestService { return m.approvals }
func (m *Manager) Projector() *portfolio.Projector { return m.projector }

// RegisterRoutes mounts the workflow, approval and portfolio routes.
func (m *Manager) RegisterRoutes(rg *gin.RouterGroup) {
	m.workflowRouter.RegisterRoutes(rg)
	m.approvalRouter.RegisterRoutes(rg)
	m.portfolioRouter.RegisterRoutes(rg)
}

// Publish enqueues a terminal approval event. It never blocks; a full
// buffer is reported to the caller, which has already committed the request.
// The caller's context is ignored so a disconnected client cannot drop the
// event of a committed request.
func (m *Manager) Publish(_ context.Context, event model.ApprovalEvent) error {
	select {
	case m.events <- event:
		return nil
	default:
		return ErrEventBufferFull
	}
}

// StartEventListener starts a goroutine that delivers approval events to the projector
func (m *Manager) StartEventListener() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.ctx.Done():
				m.drain()
				slog.Info("approval event listener stopped")
				return
			case event := <-m.events:
				// Delivery outlives shutdown; MaxElapsedTime bounds it
				m.handleEvent(context.WithoutCancel(m.ctx), event)
			}
		}
	}()
}

// StopEventListener stops the listener after delivering events already buffered.
func (m *Manager) StopEventListener() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) drain() {
	for {
		select {
		case event := <-m.events:
			m.handleEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, event model.ApprovalEvent) {
	switch event.Type {
	case model.EventRequestApproved:
		if err := m.project(ctx, event); err != nil {
			slog.Error("failed to project approved request",
				"requestId", event.RequestID,
				"studentId", event.StudentID,
				"contentType", event.ContentType,
				"contentId", event.ContentID,
				"error", err)
		}
	case model.EventRequestRejected:
		slog.Info("approval request rejected",
			"requestId", event.RequestID,
			"studentId", event.StudentID,
			"contentType", event.ContentType,
			"contentId", event.ContentID)
	default:
		slog.Warn("ignoring unknown approval event", "type", event.Type, "requestId", event.RequestID)
	}
}

// project redelivers the event with exponential backoff until the projector
// accepts it, fails permanently, or the elapsed time budget runs out.
func (m *Manager) project(ctx context.Context, event model.ApprovalEvent) error {
	b := backoff.NewExponentialBackOff()
	if m.maxElapsed > 0 {
		b.MaxElapsedTime = m.maxElapsed
	}

	op := func() error {
		err := m.projector.OnApproved(ctx, event)
		if err == nil {
			return nil
		}
		if apperr.IsKind(err, apperr.KindValidation) || apperr.IsKind(err, apperr.KindNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("retrying portfolio projection", "requestId", event.RequestID, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("portfolio projection for request %s: %w", event.RequestID, err)
	}
	return nil
}
