package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

const (
	maxNameLen  = 200
	maxFieldLen = 120
	maxPageSize = 500
)

// ProductFinder answers list queries, through the search index when present.
type ProductFinder interface {
	List(ctx context.Context, q repository.ListQuery) ([]*entity.Product, error)
}

type ProductService struct {
	store        repository.ProductRepository
	finder       ProductFinder
	index        pipeline.Indexer
	defaultOwner string
	now          func() time.Time
	logger       *slog.Logger
}

type ProductOption func(*ProductService)

// WithFinder routes List through f instead of the store.
func WithFinder(f ProductFinder) ProductOption {
	return func(s *ProductService) {
		if f != nil {
			s.finder = f
		}
	}
}

// WithIndex keeps idx in step with edits, deletes and restores.
func WithIndex(idx pipeline.Indexer) ProductOption {
	return func(s *ProductService) { s.index = idx }
}

func WithClock(now func() time.Time) ProductOption {
	return func(s *ProductService) { s.now = now }
}

func NewProductService(store repository.ProductRepository, defaultOwner string, logger *slog.Logger, opts ...ProductOption) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProductService{
		store:        store,
		finder:       store,
		defaultOwner: defaultOwner,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements ProductServer. Manual entries are trusted, so a given
// expiry date is stored with high confidence.
func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*ProductView, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	owner, err := ownerOf(ctx, s.defaultOwner)
	if err != nil {
		return nil, err
	}

	name, mfr, batch := trimmed(req.Name), trimmed(req.Manufacturer), trimmed(req.BatchNumber)
	v := common.NewValidator().
		Field("name", deref(name), common.Max(maxNameLen)).
		Field("manufacturer", deref(mfr), common.Max(maxFieldLen)).
		Field("batch_number", deref(batch), common.Max(maxFieldLen)).
		Field("expiry_date", req.ExpiryDate, common.DateYMD)
	if err := common.ValidateAndReturnError(v); err != nil {
		log.Error("invalid create product request", "error", err)
		return nil, err
	}
	if deref(name) == "" && deref(req.ExpiryDate) == "" {
		return nil, common.InvalidArgumentError("name or expiry_date is required")
	}

	p := &entity.Product{
		Owner:        owner,
		Name:         name,
		Manufacturer: mfr,
		BatchNumber:  batch,
		Confidence:   extract.ConfidenceNone,
	}
	if d, err := optionalDate(req.ExpiryDate); err != nil {
		return nil, err
	} else if d != nil {
		p.ExpiryDate = d
		p.Confidence = extract.ConfidenceHigh
	}

	created, err := s.store.Create(ctx, p)
	if err != nil {
		log.Error("failed to create product", "error", err)
		return nil, common.ToGRPCError(err)
	}
	s.reindex(ctx, created)
	log.Info("product created", "product_id", created.ID, "expiry_date", created.ExpiryDate)
	return toView(created, s.now()), nil
}

// Get implements ProductServer.
func (s *ProductService) Get(ctx context.Context, req *GetProductRequest) (*ProductView, error) {
	owner, id, err := s.target(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, owner, id)
	if err != nil {
		common.LoggerFromContext(ctx, s.logger).Error("failed to get product", "product_id", id, "error", err)
		return nil, common.ToGRPCError(err)
	}
	return toView(p, s.now()), nil
}

// List implements ProductServer.
func (s *ProductService) List(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	owner, err := ownerOf(ctx, s.defaultOwner)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if req.Deleted {
		items, err := s.store.ListDeleted(ctx, owner)
		if err != nil {
			log.Error("failed to list deleted products", "error", err)
			return nil, common.ToGRPCError(err)
		}
		return &ListProductsResponse{Products: toViews(items, now)}, nil
	}

	q, err := listQuery(owner, req.Filter, req.Search, req.Limit, req.Offset, now)
	if err != nil {
		log.Error("invalid list products request", "filter", req.Filter, "error", err)
		return nil, err
	}
	items, err := s.finder.List(ctx, q)
	if err != nil {
		log.Error("failed to list products", "filter", q.Filter, "error", err)
		return nil, common.ToGRPCError(err)
	}
	log.Debug("products listed", "filter", q.Filter, "count", len(items))
	return &ListProductsResponse{Products: toViews(items, now)}, nil
}

// Update implements ProductServer.
func (s *ProductService) Update(ctx context.Context, req *UpdateProductRequest) (*ProductView, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	owner, id, err := s.target(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	v := common.NewValidator().
		Field("name", deref(req.Name), common.Max(maxNameLen)).
		Field("manufacturer", deref(req.Manufacturer), common.Max(maxFieldLen)).
		Field("batch_number", deref(req.BatchNumber), common.Max(maxFieldLen)).
		Field("expiry_date", req.ExpiryDate, common.DateYMD)
	if err := common.ValidateAndReturnError(v); err != nil {
		log.Error("invalid update product request", "product_id", id, "error", err)
		return nil, err
	}

	u := repository.ProductUpdate{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		BatchNumber:  req.BatchNumber,
		ClearExpiry:  req.ClearExpiry,
	}
	if req.ClearExpiry && deref(req.ExpiryDate) != "" {
		return nil, common.InvalidArgumentError("expiry_date and clear_expiry are mutually exclusive")
	}
	if u.ExpiryDate, err = optionalDate(req.ExpiryDate); err != nil {
		return nil, err
	}
	if u.Empty() {
		return nil, common.InvalidArgumentError("nothing to update")
	}

	p, err := s.store.Update(ctx, owner, id, u)
	if err != nil {
		log.Error("failed to update product", "product_id", id, "error", err)
		return nil, common.ToGRPCError(err)
	}
	s.reindex(ctx, p)
	log.Info("product updated", "product_id", id)
	return toView(p, s.now()), nil
}

// Delete implements ProductServer. Products go to the recycle bin; Restore
// brings them back.
func (s *ProductService) Delete(ctx context.Context, req *DeleteProductRequest) (*DeleteProductResponse, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	owner, id, err := s.target(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SoftDelete(ctx, owner, id); err != nil {
		log.Error("failed to delete product", "product_id", id, "error", err)
		return nil, common.ToGRPCError(err)
	}
	if p, err := s.store.Get(ctx, owner, id); err == nil {
		s.reindex(ctx, p)
	}
	log.Info("product deleted", "product_id", id)
	return &DeleteProductResponse{ID: id.String(), Deleted: true}, nil
}

// Restore implements ProductServer.
func (s *ProductService) Restore(ctx context.Context, req *RestoreProductRequest) (*ProductView, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	owner, id, err := s.target(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Restore(ctx, owner, id); err != nil {
		log.Error("failed to restore product", "product_id", id, "error", err)
		return nil, common.ToGRPCError(err)
	}
	p, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, common.ToGRPCError(err)
	}
	s.reindex(ctx, p)
	log.Info("product restored", "product_id", id)
	return toView(p, s.now()), nil
}

// Summary implements ProductServer.
func (s *ProductService) Summary(ctx context.Context, _ *SummaryRequest) (*extract.StatusSummary, error) {
	owner, err := ownerOf(ctx, s.defaultOwner)
	if err != nil {
		return nil, err
	}
	dates, err := s.store.ExpiryDates(ctx, owner)
	if err != nil {
		common.LoggerFromContext(ctx, s.logger).Error("failed to load expiry dates", "error", err)
		return nil, common.ToGRPCError(err)
	}
	sum := extract.Summarize(dates, s.now())
	return &sum, nil
}

func (s *ProductService) target(ctx context.Context, rawID string) (string, uuid.UUID, error) {
	owner, err := ownerOf(ctx, s.defaultOwner)
	if err != nil {
		return "", uuid.Nil, err
	}
	rawID = strings.TrimSpace(rawID)
	v := common.NewValidator()
	if v.Field("id", rawID, common.Required); !v.HasErrors() {
		v.Field("id", rawID, common.UUID)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return "", uuid.Nil, err
	}
	return owner, uuid.MustParse(rawID), nil
}

func (s *ProductService) reindex(ctx context.Context, p *entity.Product) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, p); err != nil {
		common.LoggerFromContext(ctx, s.logger).Warn("search.index.failed", "product_id", p.ID, "err", err)
	}
}

// listQuery validates list parameters shared by gRPC, HTTP and export.
func listQuery(owner, filter, search string, limit, offset int, now time.Time) (repository.ListQuery, error) {
	v := common.NewValidator().
		Field("filter", constants.NormalizeFilter(filter), common.OneOf(constants.FilterInputs()...))
	if err := common.ValidateAndReturnError(v); err != nil {
		return repository.ListQuery{}, err
	}
	f, _ := constants.ParseFilter(filter)
	if limit < 0 || offset < 0 {
		return repository.ListQuery{}, common.InvalidArgumentError("limit and offset must not be negative")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return repository.ListQuery{
		Owner:  owner,
		Filter: f,
		Search: strings.TrimSpace(search),
		Now:    now,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func optionalDate(s *string) (*extract.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := extract.ParseDate(strings.TrimSpace(*s))
	if err != nil {
		return nil, common.InvalidArgumentError("expiry_date must be YYYY-MM-DD")
	}
	return &d, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
