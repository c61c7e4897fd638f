package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/db/ent/schema"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

const productsTable = "products"

// timestamps are stored as fixed-width UTC text so they sort the same in both dialects
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// productColumns follows the field order of the ent schema; scanProduct relies on it.
var productColumns = schema.Columns(schema.Product{})

var productChecks = schema.StringValidators(schema.Product{})

// checkColumns runs the schema's field validators over the given column values.
func checkColumns(values map[string]string) error {
	for col, v := range values {
		for _, check := range productChecks[col] {
			if err := check(v); err != nil {
				return fmt.Errorf("%s: %w: %w", col, common.ErrInvalidInput, err)
			}
		}
	}
	return nil
}

// ListQuery selects products for one owner.
type ListQuery struct {
	Owner  string
	Filter constants.ListFilter
	// Search is a case-insensitive substring of the product name.
	Search string
	// Now anchors the date filters; zero means time.Now().
	Now    time.Time
	Limit  int
	Offset int
}

// ProductUpdate carries the user editable fields. Nil leaves a field untouched.
type ProductUpdate struct {
	Name         *string
	ExpiryDate   *extract.Date
	ClearExpiry  bool
	Manufacturer *string
	BatchNumber  *string
}

func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.ExpiryDate == nil && !u.ClearExpiry && u.Manufacturer == nil && u.BatchNumber == nil
}

type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) (*entity.Product, error)
	Get(ctx context.Context, owner string, id uuid.UUID) (*entity.Product, error)
	List(ctx context.Context, q ListQuery) ([]*entity.Product, error)
	Update(ctx context.Context, owner string, id uuid.UUID, u ProductUpdate) (*entity.Product, error)
	SoftDelete(ctx context.Context, owner string, id uuid.UUID) error
	Restore(ctx context.Context, owner string, id uuid.UUID) error
	Purge(ctx context.Context, owner string, id uuid.UUID) error
	ListDeleted(ctx context.Context, owner string) ([]*entity.Product, error)
	ListExpiringOn(ctx context.Context, day extract.Date) ([]*entity.Product, error)
	FindByHash(ctx context.Context, owner, hash string) (*entity.Product, error)
	ExpiryDates(ctx context.Context, owner string) ([]extract.Date, error)
}

type productRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewProductRepository(db *DB, logger *slog.Logger) ProductRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &productRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *productRepository) dialect() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	if p == nil {
		return nil, fmt.Errorf("create product: %w", common.ErrInvalidInput)
	}
	out := *p
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	values := map[string]string{"id": out.ID.String(), "confidence": string(out.Confidence)}
	if out.ExpiryDate != nil {
		values["expiry_date"] = out.ExpiryDate.String()
	}
	if out.ContentHash != nil {
		values["content_hash"] = *out.ContentHash
	}
	if err := checkColumns(values); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	now := r.now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	out.Deleted = false

	q, args := r.dialect().Insert(productsTable).
		Columns(productColumns...).
		Values(
			out.ID.String(), out.Owner, nullString(out.Name), nullDate(out.ExpiryDate),
			nullString(out.Manufacturer), nullString(out.BatchNumber), string(out.Confidence),
			nullString(out.RawText), nullString(out.SourcePath), nullString(out.ContentHash),
			false, now.Format(timeLayout), now.Format(timeLayout),
		).Query()
	if _, err := r.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create product", "owner", out.Owner, "error", err)
		return nil, fmt.Errorf("create product: %w", err)
	}
	r.logger.Debug("product created", "id", out.ID, "owner", out.Owner)
	return &out, nil
}

func (r *productRepository) Get(ctx context.Context, owner string, id uuid.UUID) (*entity.Product, error) {
	sel := r.selectProducts().Where(entsql.And(
		entsql.EQ("id", id.String()),
		entsql.EQ("owner", owner),
	))
	return r.one(ctx, sel, fmt.Sprintf("get product %s", id))
}

func (r *productRepository) List(ctx context.Context, q ListQuery) ([]*entity.Product, error) {
	now := q.Now
	if now.IsZero() {
		now = r.now()
	}
	today := extract.DateOf(now)

	preds := []*entsql.Predicate{
		entsql.EQ("owner", q.Owner),
		entsql.EQ("deleted", false),
	}
	switch q.Filter {
	case constants.FilterExpiringThisWeek:
		preds = append(preds, withinDays(today, constants.WeekWindowDays))
	case constants.FilterExpiringSoon:
		preds = append(preds, withinDays(today, extract.SoonWindowDays))
	case constants.FilterExpiredOnly:
		preds = append(preds, entsql.And(
			entsql.NotNull("expiry_date"),
			entsql.LT("expiry_date", today.String()),
		))
	case constants.FilterAll, "":
	default:
		return nil, fmt.Errorf("list products: filter %q: %w", q.Filter, common.ErrInvalidInput)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		preds = append(preds, entsql.ContainsFold("name", s))
	}

	sel := r.selectProducts().Where(entsql.And(preds...))
	byExpiry(sel)
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel.Offset(q.Offset)
	}
	items, err := r.all(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list products", "owner", q.Owner, "filter", q.Filter, "error", err)
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

func (r *productRepository) Update(ctx context.Context, owner string, id uuid.UUID, u ProductUpdate) (*entity.Product, error) {
	if u.Empty() {
		return r.Get(ctx, owner, id)
	}
	if u.ExpiryDate != nil {
		if err := checkColumns(map[string]string{"expiry_date": u.ExpiryDate.String()}); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	upd := r.dialect().Update(productsTable).
		Set("updated_at", r.now().UTC().Format(timeLayout))
	if u.Name != nil {
		upd.Set("name", nullString(emptyToNil(u.Name)))
	}
	switch {
	case u.ClearExpiry:
		upd.SetNull("expiry_date")
	case u.ExpiryDate != nil:
		upd.Set("expiry_date", u.ExpiryDate.String())
	}
	if u.Manufacturer != nil {
		upd.Set("manufacturer", nullString(emptyToNil(u.Manufacturer)))
	}
	if u.BatchNumber != nil {
		upd.Set("batch_number", nullString(emptyToNil(u.BatchNumber)))
	}
	upd.Where(entsql.And(
		entsql.EQ("id", id.String()),
		entsql.EQ("owner", owner),
		entsql.EQ("deleted", false),
	))

	q, args := upd.Query()
	n, err := r.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update product", "id", id, "error", err)
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update product %s: %w", id, common.ErrNotFound)
	}
	return r.Get(ctx, owner, id)
}

func (r *productRepository) SoftDelete(ctx context.Context, owner string, id uuid.UUID) error {
	return r.setDeleted(ctx, owner, id, true)
}

func (r *productRepository) Restore(ctx context.Context, owner string, id uuid.UUID) error {
	return r.setDeleted(ctx, owner, id, false)
}

func (r *productRepository) setDeleted(ctx context.Context, owner string, id uuid.UUID, deleted bool) error {
	q, args := r.dialect().Update(productsTable).
		Set("deleted", deleted).
		Set("updated_at", r.now().UTC().Format(timeLayout)).
		Where(entsql.And(
			entsql.EQ("id", id.String()),
			entsql.EQ("owner", owner),
			entsql.EQ("deleted", !deleted),
		)).Query()
	n, err := r.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to change product state", "id", id, "deleted", deleted, "error", err)
		return fmt.Errorf("set deleted=%t on product %s: %w", deleted, id, err)
	}
	if n == 0 {
		return fmt.Errorf("set deleted=%t on product %s: %w", deleted, id, common.ErrNotFound)
	}
	r.logger.Debug("product state changed", "id", id, "deleted", deleted)
	return nil
}

// Purge removes a product permanently.
func (r *productRepository) Purge(ctx context.Context, owner string, id uuid.UUID) error {
	q, args := r.dialect().Delete(productsTable).
		Where(entsql.And(
			entsql.EQ("id", id.String()),
			entsql.EQ("owner", owner),
		)).Query()
	n, err := r.exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("purge product %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("purge product %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ListDeleted returns the recycle bin, most recently deleted first.
func (r *productRepository) ListDeleted(ctx context.Context, owner string) ([]*entity.Product, error) {
	sel := r.selectProducts().Where(entsql.And(
		entsql.EQ("owner", owner),
		entsql.EQ("deleted", true),
	))
	sel.OrderExprFunc(func(b *entsql.Builder) {
		b.Ident("updated_at").WriteString(" DESC")
	})
	items, err := r.all(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list deleted products: %w", err)
	}
	return items, nil
}

// ListExpiringOn returns live products of every owner expiring on day.
func (r *productRepository) ListExpiringOn(ctx context.Context, day extract.Date) ([]*entity.Product, error) {
	sel := r.selectProducts().Where(entsql.And(
		entsql.EQ("expiry_date", day.String()),
		entsql.EQ("deleted", false),
	))
	sel.OrderExprFunc(func(b *entsql.Builder) {
		b.Ident("owner").WriteString(", ").Ident("created_at")
	})
	items, err := r.all(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list expiring products", "day", day.String(), "error", err)
		return nil, fmt.Errorf("list products expiring on %s: %w", day, err)
	}
	return items, nil
}

// FindByHash returns the live product scanned from an identical image.
func (r *productRepository) FindByHash(ctx context.Context, owner, hash string) (*entity.Product, error) {
	sel := r.selectProducts().Where(entsql.And(
		entsql.EQ("owner", owner),
		entsql.EQ("content_hash", hash),
		entsql.EQ("deleted", false),
	)).Limit(1)
	return r.one(ctx, sel, "find product by hash")
}

// ExpiryDates returns the expiry dates of the owner's live, dated products.
func (r *productRepository) ExpiryDates(ctx context.Context, owner string) ([]extract.Date, error) {
	q, args := r.dialect().Select("expiry_date").
		From(r.dialect().Table(productsTable)).
		Where(entsql.And(
			entsql.EQ("owner", owner),
			entsql.EQ("deleted", false),
			entsql.NotNull("expiry_date"),
		)).Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("expiry dates: %w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var dates []extract.Date
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("expiry dates: %w: %w", common.ErrDatabase, err)
		}
		d, err := extract.ParseDate(s)
		if err != nil {
			r.logger.Warn("skipping malformed stored date", "value", s, "error", err)
			continue
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expiry dates: %w: %w", common.ErrDatabase, err)
	}
	return dates, nil
}

func (r *productRepository) selectProducts() *entsql.Selector {
	return r.dialect().Select(productColumns...).From(r.dialect().Table(productsTable))
}

// byExpiry orders by expiry ascending with undated products last.
func byExpiry(sel *entsql.Selector) {
	sel.OrderExprFunc(func(b *entsql.Builder) {
		b.WriteString("CASE WHEN ").Ident("expiry_date").WriteString(" IS NULL THEN 1 ELSE 0 END, ").
			Ident("expiry_date").WriteString(", ").
			Ident("created_at")
	})
}

// withinDays matches dates from today up to today+days inclusive.
func withinDays(today extract.Date, days int) *entsql.Predicate {
	return entsql.And(
		entsql.NotNull("expiry_date"),
		entsql.GTE("expiry_date", today.String()),
		entsql.LTE("expiry_date", today.AddDays(days).String()),
	)
}

func (r *productRepository) exec(ctx context.Context, q string, args []any) (int64, error) {
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, q, args, &res); err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return n, nil
}

func (r *productRepository) one(ctx context.Context, sel *entsql.Selector, op string) (*entity.Product, error) {
	items, err := r.all(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return items[0], nil
}

func (r *productRepository) all(ctx context.Context, sel *entsql.Selector) ([]*entity.Product, error) {
	q, args := sel.Query()
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(&rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*entity.Product, error) {
	var (
		id, owner, confidence, created, updated          string
		name, expiry, manufacturer, batch, raw, src, sum sql.NullString
		deleted                                          bool
	)
	if err := s.Scan(&id, &owner, &name, &expiry, &manufacturer, &batch,
		&confidence, &raw, &src, &sum, &deleted, &created, &updated); err != nil {
		return nil, fmt.Errorf("%w: scan product: %w", common.ErrDatabase, err)
	}

	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: product id %q: %w", common.ErrDatabase, id, err)
	}
	p := &entity.Product{
		ID:           pid,
		Owner:        owner,
		Name:         fromNull(name),
		Manufacturer: fromNull(manufacturer),
		BatchNumber:  fromNull(batch),
		Confidence:   extract.Confidence(confidence),
		RawText:      fromNull(raw),
		SourcePath:   fromNull(src),
		ContentHash:  fromNull(sum),
		Deleted:      deleted,
	}
	if expiry.Valid {
		d, err := extract.ParseDate(expiry.String)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s: %w", common.ErrDatabase, id, err)
		}
		p.ExpiryDate = &d
	}
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("%w: product %s created_at: %w", common.ErrDatabase, id, err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("%w: product %s updated_at: %w", common.ErrDatabase, id, err)
	}
	return p, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullDate(d *extract.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// An edit to "" clears the field rather than storing an empty string.
func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
