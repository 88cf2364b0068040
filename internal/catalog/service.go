package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

const (
	// MsgRequiredFields is returned when /additem is missing a field.
	MsgRequiredFields = "Please fill all required fields."
	// MsgItemAdded is returned after a successful insert.
	MsgItemAdded = "Item added successfully!"
	// MsgInsertFailed is returned when the insert hits a database error.
	MsgInsertFailed = "Database error while inserting item."
	// MsgInvalidAmounts is returned for a negative price or quantity, or a
	// tax rate outside [0, 1).
	MsgInvalidAmounts = "Price and quantity must not be negative; tax rate must be a fraction below 1."
	// MsgNotFound is returned for unknown item ids.
	MsgNotFound = "Product not found"
	// MsgDatabaseError is returned when search or lookup fails.
	MsgDatabaseError = "Database error"
)

var hundred = decimal.NewFromInt(100)

type queryProvider interface {
	SearchItems(ctx context.Context, arg db.SearchItemsParams) ([]db.Item, error)
	GetItem(ctx context.Context, id int64) (db.Item, error)
	CreateItem(ctx context.Context, arg db.CreateItemParams) (db.Item, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	queries     queryProvider
	cache       *Cache
	validate    *validator.Validate
	events      Emitter
	logger      zerolog.Logger
	searchLimit int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries     queryProvider
	Cache       *Cache
	Validator   *validator.Validate
	Events      Emitter
	Logger      zerolog.Logger
	SearchLimit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	limit := cfg.SearchLimit
	if limit < 1 {
		limit = 10
	}
	v := cfg.Validator
	if v == nil {
		v = validator.New()
	}
	return &Service{
		queries:     cfg.Queries,
		cache:       cfg.Cache,
		validate:    v,
		events:      cfg.Events,
		logger:      cfg.Logger,
		searchLimit: limit,
	}, nil
}

// Search returns up to the configured number of items whose name or barcode
// contains query. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, query string) ([]posapi.Item, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []posapi.Item{}, nil
	}
	normalized := strings.ToLower(q)
	if cached, hit, err := s.cache.Lookup(ctx, normalized, s.searchLimit); err != nil {
		s.logger.Warn().Err(err).Msg("catalog search cache read failed")
	} else if hit {
		return cached, nil
	}

	rows, err := s.queries.SearchItems(ctx, db.SearchItemsParams{
		Pattern: "%" + escapeLike(q) + "%",
		Limit:   int32(s.searchLimit),
	})
	if err != nil {
		return nil, internal(fmt.Errorf("search items: %w", err))
	}
	items := make([]posapi.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	if err := s.cache.Store(ctx, normalized, s.searchLimit, items); err != nil {
		s.logger.Warn().Err(err).Msg("catalog search cache write failed")
	}
	return items, nil
}

// Item fetches a single item by its numeric id.
func (s *Service) Item(ctx context.Context, rawID string) (posapi.Item, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id < 1 {
		return posapi.Item{}, notFound(err)
	}
	row, err := s.queries.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return posapi.Item{}, notFound(err)
		}
		return posapi.Item{}, internal(fmt.Errorf("get item %d: %w", id, err))
	}
	return toItem(row), nil
}

// Create validates and inserts a catalog item. A missing final price is
// derived from price and percent discount.
func (s *Service) Create(ctx context.Context, in posapi.NewItem) (posapi.Item, error) {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := s.validate.Struct(in); err != nil {
		return posapi.Item{}, invalid(err)
	}
	if !in.Quantity.Set || !in.Price.Set {
		return posapi.Item{}, invalid(errors.New("quantity and price are required"))
	}
	if err := checkAmounts(in); err != nil {
		return posapi.Item{}, &common.AppError{
			Code:       common.CodeValidation,
			Message:    MsgInvalidAmounts,
			HTTPStatus: http.StatusOK,
			Err:        err,
		}
	}

	discount := in.Discount.Value
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	finalPrice := in.FinalPrice.Value
	if !in.FinalPrice.Set {
		finalPrice = FinalPrice(in.Price.Value, discount)
	}
	taxRate := pgtype.Numeric{}
	if in.TaxRate != nil && in.TaxRate.Set {
		taxRate = db.Numeric(in.TaxRate.Value)
	}

	row, err := s.queries.CreateItem(ctx, db.CreateItemParams{
		Barcode:    in.Barcode,
		Name:       in.Name,
		Category:   in.Category,
		Quantity:   db.Numeric(in.Quantity.Value),
		Price:      db.Numeric(in.Price.Value),
		Discount:   db.Numeric(discount),
		FinalPrice: db.Numeric(finalPrice),
		TaxRate:    taxRate,
	})
	if err != nil {
		return posapi.Item{}, &common.AppError{
			Code:       "DB_INSERT",
			Message:    MsgInsertFailed,
			HTTPStatus: http.StatusInternalServerError,
			Err:        fmt.Errorf("create item: %w", err),
		}
	}
	if err := s.cache.InvalidateSearch(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog search cache invalidation failed")
	}
	item := toItem(row)
	if s.events != nil {
		if _, err := s.events.Emit(ctx, events.TopicItemAdded, item.Key(), events.ItemAdded{
			ItemID:  item.ID,
			Barcode: item.Barcode,
			Name:    item.Name,
		}); err != nil {
			s.logger.Warn().Err(err).Int64("item_id", item.ID).Msg("item.added event failed")
		}
	}
	return item, nil
}

// FinalPrice is price less a percent discount, rounded to two places.
func FinalPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	return price.Sub(price.Mul(discountPercent).Div(hundred)).Round(2)
}

func toItem(row db.Item) posapi.Item {
	qty := db.Decimal(row.Quantity)
	item := posapi.Item{
		ID:         row.ID,
		Barcode:    row.Barcode,
		Name:       row.Name,
		Category:   row.Category,
		Quantity:   &qty,
		Price:      db.Decimal(row.Price),
		Discount:   db.Decimal(row.Discount),
		FinalPrice: db.Decimal(row.FinalPrice),
	}
	if row.TaxRate.Valid {
		rate := db.Decimal(row.TaxRate)
		item.TaxRate = &rate
	}
	return item
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// validTaxRate reports whether r is a usable tax fraction.
func validTaxRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThan(decimal.NewFromInt(1))
}

func checkAmounts(in posapi.NewItem) error {
	switch {
	case in.Price.Value.IsNegative():
		return fmt.Errorf("price %s is negative", in.Price.Value)
	case in.Quantity.Value.IsNegative():
		return fmt.Errorf("quantity %s is negative", in.Quantity.Value)
	case in.FinalPrice.Set && in.FinalPrice.Value.IsNegative():
		return fmt.Errorf("final price %s is negative", in.FinalPrice.Value)
	case in.TaxRate != nil && in.TaxRate.Set && !validTaxRate(in.TaxRate.Value):
		return fmt.Errorf("tax rate %s outside [0, 1)", in.TaxRate.Value)
	}
	return nil
}

func invalid(err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeValidation,
		Message:    MsgRequiredFields,
		HTTPStatus: http.StatusOK,
		Err:        err,
	}
}

func notFound(err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeNotFound,
		Message:    MsgNotFound,
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func internal(err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeInternal,
		Message:    MsgDatabaseError,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
