package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/app"
	"github.com/noah-isme/toko-pos/internal/auth"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

type demoItem struct {
	Barcode  string
	Name     string
	Category string
	Quantity int64
	Price    string
	Discount string
	TaxRate  string
}

var demoCatalog = []demoItem{
	{"8901030865278", "Basmati Rice 5kg", "Grocery", 40, "625.00", "5", "0.05"},
	{"8901725133979", "Toor Dal 1kg", "Grocery", 60, "165.00", "0", "0.05"},
	{"8901058000290", "Sunflower Oil 1L", "Grocery", 35, "189.50", "10", "0.05"},
	{"8901063010321", "Whole Wheat Atta 10kg", "Grocery", 25, "480.00", "0", "0"},
	{"8901491101837", "Potato Chips 52g", "Snacks", 120, "20.00", "0", "0.12"},
	{"8901262010016", "Milk Chocolate 50g", "Snacks", 90, "45.00", "0", "0.18"},
	{"8901314010124", "Toothpaste 150g", "Personal Care", 50, "98.00", "15", "0.18"},
	{"8901030704836", "Bath Soap 4x100g", "Personal Care", 70, "160.00", "12.5", "0.18"},
	{"8901396393107", "Dishwash Liquid 500ml", "Household", 45, "115.00", "0", "0.18"},
	{"8906001260019", "Mineral Water 1L", "Beverages", 200, "20.00", "0", "0.12"},
}

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(os.Getenv("OBS_LOG_FORMAT"), "info").With().Str("component", "seeder").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}
	pool, err := app.OpenPostgres(ctx, app.PostgresOptions{URL: dbURL, AppName: "pos-seeder"})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	queries := db.New(pool)

	if err := seedOperator(ctx, queries, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed operator")
	}
	if err := seedCatalog(ctx, queries, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().Msg("seeding completed")
}

func seedOperator(ctx context.Context, queries *db.Queries, logger zerolog.Logger) error {
	svc, err := auth.NewService(auth.Config{Queries: queries, HashAlgo: os.Getenv("AUTH_HASH_ALGO")})
	if err != nil {
		return err
	}
	email := envOrDefault("SEED_OPERATOR_EMAIL", "cashier@toko.local")
	_, err = svc.Register(ctx, "Front Counter", email, envOrDefault("SEED_OPERATOR_PASSWORD", "cashier123"))
	if common.HasCode(err, common.CodeConflict) {
		logger.Info().Str("email", email).Msg("operator already present")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info().Str("email", email).Msg("operator created")
	return nil
}

func seedCatalog(ctx context.Context, queries *db.Queries, logger zerolog.Logger) error {
	svc, err := catalog.NewService(catalog.ServiceConfig{Queries: queries, Logger: logger})
	if err != nil {
		return err
	}
	created := 0
	for _, it := range demoCatalog {
		existing, err := svc.Search(ctx, it.Barcode)
		if err != nil {
			return err
		}
		if containsBarcode(existing, it.Barcode) {
			continue
		}
		rate := posapi.Flex(decimal.RequireFromString(it.TaxRate))
		if _, err := svc.Create(ctx, posapi.NewItem{
			Barcode:  it.Barcode,
			Name:     it.Name,
			Category: it.Category,
			Quantity: posapi.Flex(decimal.NewFromInt(it.Quantity)),
			Price:    posapi.Flex(decimal.RequireFromString(it.Price)),
			Discount: posapi.Flex(decimal.RequireFromString(it.Discount)),
			TaxRate:  &rate,
		}); err != nil {
			return err
		}
		created++
	}
	logger.Info().Int("created", created).Int("catalog", len(demoCatalog)).Msg("catalog seeded")
	return nil
}

func containsBarcode(items []posapi.Item, barcode string) bool {
	for _, it := range items {
		if it.Barcode == barcode {
			return true
		}
	}
	return false
}

func envOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
