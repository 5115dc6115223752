package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/policy"
	"github.com/spec-kit/request-desk/internal/repository"
	"github.com/spec-kit/request-desk/internal/worktime"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

// RequestService coordinates request workflows.
type RequestService struct {
	tx         Transactor
	requests   repository.RequestRepository
	history    repository.HistoryRepository
	users      repository.UserRepository
	clients    repository.ClientRepository
	categories repository.CategoryRepository
	auditRepo  repository.AuditRepository
	audit      auditor
	policy     *policy.Resolver
	archiver   Archiver
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	Tx           Transactor
	RequestRepo  repository.RequestRepository
	HistoryRepo  repository.HistoryRepository
	UserRepo     repository.UserRepository
	ClientRepo   repository.ClientRepository
	CategoryRepo repository.CategoryRepository
	AuditRepo    repository.AuditRepository
	Archiver     Archiver
	Notifier     Notifier
	Logger       *zap.Logger
	Clock        func() time.Time
}

// RequestCreateInput describes request creation payload. Area defaults to the
// category's area.
type RequestCreateInput struct {
	ClientID         string
	CategoryID       string
	Area             *domain.Area
	Description      string
	ExtraDescription *string
	Cost             *decimal.Decimal
}

// RequestPatch lists the editable fields. Nil fields are left untouched.
type RequestPatch struct {
	Description      *string
	ExtraDescription *string
	Cost             *decimal.Decimal
	CategoryID       *string
	AssigneeID       *string
}

// TransferInput describes a bulk reassignment.
type TransferInput struct {
	FromUserID string
	RequestIDs []string
	ToUserIDs  []string
	Reason     string
}

// TransferItem is the outcome for one request of a bulk transfer.
type TransferItem struct {
	RequestID string `json:"request_id"`
	ToUserID  string `json:"to_user_id"`
	Moved     bool   `json:"moved"`
	Error     string `json:"error,omitempty"`
}

// TransferResult lists per-request outcomes in input order.
type TransferResult struct {
	Moved  int            `json:"moved"`
	Failed int            `json:"failed"`
	Items  []TransferItem `json:"items"`
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := loggerOrNop(deps.Logger).With(zap.String("service", "requests"))
	return &RequestService{
		tx:         deps.Tx,
		requests:   deps.RequestRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		clients:    deps.ClientRepo,
		categories: deps.CategoryRepo,
		auditRepo:  deps.AuditRepo,
		audit:      auditor{repo: deps.AuditRepo, logger: logger},
		policy:     policy.NewResolver(deps.UserRepo),
		archiver:   deps.Archiver,
		notifier:   deps.Notifier,
		logger:     logger,
		now:        nowFunc(deps.Clock),
	}
}

// Create registers a new request. Ads requests are handed straight to the
// client's ads user when that user is active.
func (s *RequestService) Create(ctx context.Context, input RequestCreateInput, actor domain.Actor) (*domain.Request, error) {
	client, err := s.clients.GetByID(ctx, input.ClientID)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "client", input.ClientID)
	}
	if !client.Active {
		return nil, apperrors.NewValidationError("client is inactive", map[string]any{"client_id": client.ID})
	}
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "category", input.CategoryID)
	}
	if !category.Active {
		return nil, apperrors.NewValidationError("category is inactive", map[string]any{"category_id": category.ID})
	}

	area := category.Area
	if input.Area != nil {
		area = *input.Area
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	extra := trimmedOrNil(input.ExtraDescription)
	if err := requireExtraDescription(category, area, extra); err != nil {
		return nil, err
	}
	cost, err := resolveCost(category, input.Cost)
	if err != nil {
		return nil, err
	}

	req := &domain.Request{
		ClientID:         client.ID,
		CategoryID:       category.ID,
		Description:      description,
		ExtraDescription: extra,
		Cost:             cost,
		Area:             area,
		State:            domain.StatePending,
		CreatorID:        actor.UserID,
	}

	if area == domain.AreaAds {
		assignee, err := s.activeAdsUser(ctx, client)
		if err != nil {
			return nil, err
		}
		if assignee != nil {
			if err := req.Accept(assignee.ID, s.now()); err != nil {
				return nil, err
			}
		}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.audit.record(ctx, requestAudit(req, domain.ChangeInsert, "state", nil, strPtr(string(req.State)), actor))
	if req.AssigneeID != nil {
		s.audit.record(ctx, requestAudit(req, domain.ChangeAssignment, "assignee_id", nil, optString(req.AssigneeID), actor))
		s.notifier.NotifyAssignment(ctx, req, *req.AssigneeID, actor)
	} else {
		s.broadcastPending(ctx, req)
	}
	return req, nil
}

// activeAdsUser returns the client's ads user when it exists and is active.
// A missing or inactive user leaves the request in the queue.
func (s *RequestService) activeAdsUser(ctx context.Context, client *domain.Client) (*domain.User, error) {
	if client.AdsUserID == nil {
		s.logger.Warn("client has no ads user; request stays pending", zap.String("client_id", client.ID))
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, *client.AdsUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("client ads user not found; request stays pending",
				zap.String("client_id", client.ID), zap.String("user_id", *client.AdsUserID))
			return nil, nil
		}
		return nil, fmt.Errorf("load ads user: %w", err)
	}
	if !user.Active {
		s.logger.Warn("client ads user inactive; request stays pending",
			zap.String("client_id", client.ID), zap.String("user_id", user.ID))
		return nil, nil
	}
	return user, nil
}

func (s *RequestService) broadcastPending(ctx context.Context, req *domain.Request) {
	users, err := s.users.ListActive(ctx, policy.AcceptingAreas(req.Area)...)
	if err != nil {
		s.logger.Warn("load broadcast recipients failed", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	recipients := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID != req.CreatorID {
			recipients = append(recipients, u.ID)
		}
	}
	if len(recipients) == 0 {
		return
	}
	s.notifier.NotifyBroadcast(ctx, req, recipients)
}

// Accept takes a pending request from the queue.
func (s *RequestService) Accept(ctx context.Context, id string, actor domain.Actor) (*domain.Request, error) {
	var req *domain.Request
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "request", id)
		}
		if req.State != domain.StatePending {
			return apperrors.NewValidationError("only pending requests can be accepted", map[string]any{
				"request_id": id,
				"state":      req.State,
			})
		}
		if !policy.CanAccept(actor, req.Area) {
			return apperrors.NewForbidden("request belongs to another area")
		}
		if err := req.Accept(actor.UserID, s.now()); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, requestAudit(req, domain.ChangeAssignment, "assignee_id", nil, optString(req.AssigneeID), actor))
	s.notifier.NotifyAssignment(ctx, req, actor.UserID, actor)
	if req.CreatorID != actor.UserID {
		s.notifier.NotifyStatusChange(ctx, req, domain.StatePending, []string{req.CreatorID}, actor)
	}
	return req, nil
}

// ChangeState moves a request along the transition table. Terminal targets
// are archived once the transition commits.
func (s *RequestService) ChangeState(ctx context.Context, id string, state string, actor domain.Actor) (*domain.Request, error) {
	var (
		req  *domain.Request
		from domain.RequestState
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "request", id)
		}
		if req.IsTerminal() {
			return apperrors.NewValidationError("request is already closed", map[string]any{
				"request_id": id,
				"state":      req.State,
			})
		}
		next, ok := domain.ParseState(state)
		if !ok {
			return apperrors.NewValidationError("unknown state", map[string]any{"state": state})
		}
		allowed, err := s.isOwnerOrManager(ctx, actor, req)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.NewForbidden("only the assignee, the creator or a manager can change the state")
		}
		from = req.State
		if err := req.TransitionTo(next, s.now()); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, requestAudit(req, domain.ChangeStateChange, "state", strPtr(string(from)), strPtr(string(req.State)), actor))
	s.notifier.NotifyStatusChange(ctx, req, from, without(uniqueIDs(req.OwnerIDs()...), actor.UserID), actor)

	if req.IsTerminal() {
		if err := s.archiver.Archive(ctx, req); err != nil {
			s.logger.Error("archive after state change failed", zap.String("request_id", req.ID), zap.Error(err))
			return nil, fmt.Errorf("archive request %s: %w", req.ID, err)
		}
	}
	return req, nil
}

// Update applies a partial edit. Changing the assignee is a manual
// reassignment.
func (s *RequestService) Update(ctx context.Context, id string, patch RequestPatch, actor domain.Actor) (*domain.Request, error) {
	var (
		req          *domain.Request
		entries      []domain.AuditEntry
		reassignedTo string
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "request", id)
		}
		allowed := req.CreatorID == actor.UserID
		if !allowed {
			allowed, err = s.isManager(ctx, actor, req)
			if err != nil {
				return err
			}
		}
		if !allowed {
			return apperrors.NewForbidden("only the creator or a manager can edit the request")
		}
		if req.IsTerminal() {
			return apperrors.NewValidationError("closed requests cannot be edited", map[string]any{"request_id": id})
		}

		entries, reassignedTo, err = s.applyPatch(ctx, req, patch, actor)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		s.audit.record(ctx, entry)
	}
	if reassignedTo != "" {
		s.notifier.NotifyAssignment(ctx, req, reassignedTo, actor)
	}
	return req, nil
}

func (s *RequestService) applyPatch(ctx context.Context, req *domain.Request, patch RequestPatch, actor domain.Actor) ([]domain.AuditEntry, string, error) {
	var entries []domain.AuditEntry
	changed := func(field string, oldValue, newValue *string) {
		entries = append(entries, requestAudit(req, domain.ChangeUpdate, field, oldValue, newValue, actor))
	}

	category, err := s.categories.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, "", apperrors.NotFoundIfNoRows(err, "category", req.CategoryID)
	}

	if patch.CategoryID != nil && *patch.CategoryID != req.CategoryID {
		next, err := s.categories.GetByID(ctx, *patch.CategoryID)
		if err != nil {
			return nil, "", apperrors.NotFoundIfNoRows(err, "category", *patch.CategoryID)
		}
		if !next.Active {
			return nil, "", apperrors.NewValidationError("category is inactive", map[string]any{"category_id": next.ID})
		}
		changed("category_id", strPtr(req.CategoryID), strPtr(next.ID))
		req.CategoryID = next.ID
		category = next
		if !category.VariableCost && patch.Cost == nil && !req.Cost.Equal(category.Cost) {
			changed("cost", strPtr(req.Cost.String()), strPtr(category.Cost.String()))
			req.Cost = category.Cost
		}
	}

	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return nil, "", apperrors.NewValidationError("description is required", nil)
		}
		if description != req.Description {
			changed("description", strPtr(req.Description), strPtr(description))
			req.Description = description
		}
	}

	if patch.ExtraDescription != nil {
		extra := trimmedOrNil(patch.ExtraDescription)
		if !sameString(extra, req.ExtraDescription) {
			changed("extra_description", optString(req.ExtraDescription), optString(extra))
			req.ExtraDescription = extra
		}
	}
	if err := requireExtraDescription(category, req.Area, req.ExtraDescription); err != nil {
		return nil, "", err
	}

	if patch.Cost != nil {
		if !category.VariableCost {
			return nil, "", apperrors.NewValidationError("category has a fixed cost", map[string]any{"category_id": category.ID})
		}
		cost, err := resolveCost(category, patch.Cost)
		if err != nil {
			return nil, "", err
		}
		if !cost.Equal(req.Cost) {
			changed("cost", strPtr(req.Cost.String()), strPtr(cost.String()))
			req.Cost = cost
		}
	}

	var reassignedTo string
	if patch.AssigneeID != nil && !req.IsAssignee(*patch.AssigneeID) {
		user, err := s.users.GetByID(ctx, *patch.AssigneeID)
		if err != nil {
			return nil, "", apperrors.NotFoundIfNoRows(err, "user", *patch.AssigneeID)
		}
		if !user.Active {
			return nil, "", apperrors.NewValidationError("assignee is inactive", map[string]any{"user_id": user.ID})
		}
		previous := optString(req.AssigneeID)
		fromState := req.State
		if err := req.Reassign(user.ID, s.now()); err != nil {
			return nil, "", err
		}
		entries = append(entries, requestAudit(req, domain.ChangeAssignment, "assignee_id", previous, strPtr(user.ID), actor))
		if req.State != fromState {
			entries = append(entries, requestAudit(req, domain.ChangeStateChange, "state", strPtr(string(fromState)), strPtr(string(req.State)), actor))
		}
		reassignedTo = user.ID
	}
	return entries, reassignedTo, nil
}

// Pause stops the timer of an in-progress request.
func (s *RequestService) Pause(ctx context.Context, id string, actor domain.Actor) (*domain.Request, error) {
	return s.toggleTimer(ctx, id, actor, domain.ChangePause, (*domain.Request).Pause)
}

// Resume restarts the timer of a paused request.
func (s *RequestService) Resume(ctx context.Context, id string, actor domain.Actor) (*domain.Request, error) {
	return s.toggleTimer(ctx, id, actor, domain.ChangeResume, (*domain.Request).Resume)
}

func (s *RequestService) toggleTimer(ctx context.Context, id string, actor domain.Actor, kind domain.ChangeKind, apply func(*domain.Request, time.Time) error) (*domain.Request, error) {
	var (
		req  *domain.Request
		from domain.RequestState
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "request", id)
		}
		allowed := req.IsAssignee(actor.UserID)
		if !allowed {
			allowed, err = s.isManager(ctx, actor, req)
			if err != nil {
				return err
			}
		}
		if !allowed {
			return apperrors.NewForbidden("only the assignee or a manager can control the timer")
		}
		from = req.State
		if err := apply(req, s.now()); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, requestAudit(req, kind, "state", strPtr(string(from)), strPtr(string(req.State)), actor))
	return req, nil
}

// TransferBulk moves requests from one user to others round-robin. Each request
// is reassigned in its own transaction and failures are reported per item.
func (s *RequestService) TransferBulk(ctx context.Context, input TransferInput, actor domain.Actor) (*TransferResult, error) {
	if !policy.IsPrivileged(actor.Role) {
		return nil, apperrors.NewForbidden("only managers can transfer requests")
	}
	if len(input.RequestIDs) == 0 || len(input.ToUserIDs) == 0 {
		return nil, apperrors.NewValidationError("requests and target users are required", nil)
	}
	if _, err := s.users.GetByID(ctx, input.FromUserID); err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "user", input.FromUserID)
	}
	for _, to := range input.ToUserIDs {
		if to == input.FromUserID {
			return nil, apperrors.NewValidationError("cannot transfer to the origin user", map[string]any{"user_id": to})
		}
		user, err := s.users.GetByID(ctx, to)
		if err != nil {
			return nil, apperrors.NotFoundIfNoRows(err, "user", to)
		}
		if !user.Active {
			return nil, apperrors.NewValidationError("target user is inactive", map[string]any{"user_id": to})
		}
	}
	members, err := s.policy.Members(ctx, actor)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Items: make([]TransferItem, 0, len(input.RequestIDs))}
	moved := make(map[string][]string)
	for i, requestID := range input.RequestIDs {
		to := input.ToUserIDs[i%len(input.ToUserIDs)]
		item := TransferItem{RequestID: requestID, ToUserID: to}

		if err := s.transferOne(ctx, requestID, input.FromUserID, to, members, actor); err != nil {
			item.Error = err.Error()
			result.Failed++
			s.logger.Warn("transfer item failed",
				zap.String("request_id", requestID),
				zap.String("from_user_id", input.FromUserID),
				zap.String("to_user_id", to),
				zap.Error(err))
		} else {
			item.Moved = true
			result.Moved++
			moved[to] = append(moved[to], requestID)
			s.audit.record(ctx, domain.AuditEntry{
				EntityType: domain.EntityRequest,
				EntityID:   requestID,
				Kind:       domain.ChangeAssignment,
				Field:      "assignee_id",
				OldValue:   strPtr(input.FromUserID),
				NewValue:   strPtr(to),
				ActorID:    actor.ActorID(),
				Note:       input.Reason,
			})
		}
		result.Items = append(result.Items, item)
	}

	if len(moved) > 0 {
		s.notifier.NotifyTransfer(ctx, input.FromUserID, moved, input.Reason, actor)
	}
	return result, nil
}

func (s *RequestService) transferOne(ctx context.Context, requestID, from, to string, members policy.Members, actor domain.Actor) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return apperrors.NotFoundIfNoRows(err, "request", requestID)
		}
		if !req.IsAssignee(from) {
			return apperrors.NewValidationError("request is not assigned to the origin user", map[string]any{"request_id": requestID})
		}
		if req.IsTerminal() {
			return apperrors.NewValidationError("closed requests cannot be transferred", map[string]any{"request_id": requestID})
		}
		if !policy.CanModify(actor, policy.RequestResource(req), members) {
			return apperrors.NewForbidden("request is outside your area")
		}
		if err := req.Reassign(to, s.now()); err != nil {
			return err
		}
		return s.requests.Update(ctx, req)
	})
}

// GetByID returns an active request visible to actor.
func (s *RequestService) GetByID(ctx context.Context, id string, actor domain.Actor) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundIfNoRows(err, "request", id)
	}
	ok, err := s.policy.CanView(ctx, actor, policy.RequestResource(req))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewForbidden("request is not visible to you")
	}
	return req, nil
}

// List returns active requests matching filter within actor's scope.
func (s *RequestService) List(ctx context.Context, filter repository.RequestFilter, actor domain.Actor) ([]domain.Request, error) {
	scope, err := s.policy.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.Scope = &scope
	return s.requests.List(ctx, filter)
}

// ListPending returns the queue for area, or for every area actor may accept
// when area is nil.
func (s *RequestService) ListPending(ctx context.Context, area *domain.Area, limit, offset int, actor domain.Actor) ([]domain.Request, error) {
	filter := repository.RequestFilter{
		States: []domain.RequestState{domain.StatePending},
		Limit:  limit,
		Offset: offset,
	}
	switch {
	case area != nil:
		filter.Areas = []domain.Area{*area}
	case actor.Role != domain.RoleAdmin:
		filter.Areas = policy.AcceptableAreas(actor.Area)
	}
	return s.List(ctx, filter, actor)
}

// GetHistory lists archived requests within actor's scope.
func (s *RequestService) GetHistory(ctx context.Context, filter repository.HistoryFilter, actor domain.Actor) ([]domain.RequestHistory, error) {
	scope, err := s.policy.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	filter.Scope = &scope
	return s.history.List(ctx, filter)
}

// GetTimeSpent projects the work timer at read time. Archived requests report
// their frozen total.
func (s *RequestService) GetTimeSpent(ctx context.Context, id string, actor domain.Actor) (worktime.Snapshot, error) {
	now := s.now()
	req, err := s.requests.GetByID(ctx, id)
	if err == nil {
		if err := s.ensureVisible(ctx, actor, policy.RequestResource(req)); err != nil {
			return worktime.Snapshot{}, err
		}
		return req.TimeSpent(now), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return worktime.Snapshot{}, err
	}

	h, err := s.history.GetByOriginalID(ctx, id)
	if err != nil {
		return worktime.Snapshot{}, apperrors.NotFoundIfNoRows(err, "request", id)
	}
	if err := s.ensureVisible(ctx, actor, policy.HistoryResource(h)); err != nil {
		return worktime.Snapshot{}, err
	}
	return worktime.Snap(h.WorkedSeconds, false, nil, now), nil
}

// ListAudit returns the change log of an active or archived request.
func (s *RequestService) ListAudit(ctx context.Context, id string, actor domain.Actor) ([]domain.AuditEntry, error) {
	req, err := s.requests.GetByID(ctx, id)
	switch {
	case err == nil:
		if err := s.ensureVisible(ctx, actor, policy.RequestResource(req)); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		h, err := s.history.GetByOriginalID(ctx, id)
		if err != nil {
			return nil, apperrors.NotFoundIfNoRows(err, "request", id)
		}
		if err := s.ensureVisible(ctx, actor, policy.HistoryResource(h)); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.auditRepo.ListByEntity(ctx, domain.EntityRequest, id)
}

func (s *RequestService) ensureVisible(ctx context.Context, actor domain.Actor, res policy.Resource) error {
	ok, err := s.policy.CanView(ctx, actor, res)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewForbidden("request is not visible to you")
	}
	return nil
}

// isManager reports a privileged actor whose scope covers req.
func (s *RequestService) isManager(ctx context.Context, actor domain.Actor, req *domain.Request) (bool, error) {
	if !policy.IsPrivileged(actor.Role) {
		return false, nil
	}
	return s.policy.CanModify(ctx, actor, policy.RequestResource(req))
}

func (s *RequestService) isOwnerOrManager(ctx context.Context, actor domain.Actor, req *domain.Request) (bool, error) {
	if req.IsAssignee(actor.UserID) || req.CreatorID == actor.UserID {
		return true, nil
	}
	return s.isManager(ctx, actor, req)
}

func requireExtraDescription(category *domain.Category, area domain.Area, extra *string) error {
	if category.RequiresExtraDescription && area != domain.AreaAdmin && extra == nil {
		return apperrors.NewValidationError("extra description is required for this category", map[string]any{
			"category_id": category.ID,
		})
	}
	return nil
}

func resolveCost(category *domain.Category, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if !category.VariableCost {
		return category.Cost, nil
	}
	if supplied == nil {
		return decimal.Zero, apperrors.NewValidationError("cost is required for this category", map[string]any{
			"category_id": category.ID,
		})
	}
	if supplied.IsNegative() {
		return decimal.Zero, apperrors.NewValidationError("cost must not be negative", nil)
	}
	return *supplied, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
