package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/posclient"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/register"
	"github.com/noah-isme/toko-pos/internal/render"
)

func main() {
	cfg, err := config.LoadRegister()
	if err != nil {
		panic(err)
	}

	// stdout belongs to the cart table.
	logger := obs.NewLoggerTo(os.Stderr, cfg.LogFormat, cfg.LogLevel).With().Str("component", "register").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := posclient.New(posclient.Config{
		BaseURL: cfg.RegisterAPIURL,
		Timeout: cfg.OutboundTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("configure api client")
	}

	printer, err := receipt.NewPrinterFromConfig(cfg.PrinterKind, cfg.PrinterUSBPath, cfg.PrinterAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure printer")
	}
	defer func() { _ = printer.Close() }()

	store := cart.NewStore(cart.WithDefaultTaxRate(cfg.DefaultTaxRate))
	table := &render.TextRenderer{W: os.Stdout, ClearScreen: true}
	var screen render.Renderer = table
	if cfg.RegisterHTMLPath != "" {
		screen = render.Multi{table, &render.HTMLRenderer{Path: cfg.RegisterHTMLPath}}
	}
	unsubscribe := store.Subscribe(render.Subscriber(screen, logger))
	defer unsubscribe()

	cli := register.NewCLI(os.Stdin, os.Stdout)
	session, err := register.New(register.Config{
		Store:   store,
		Catalog: client,
		Saver:   client,
		Composer: receipt.Composer{Store: receipt.StoreHeader{
			Name:    cfg.StoreName,
			Address: cfg.StoreAddress,
			GSTIN:   cfg.StoreGSTIN,
			Email:   cfg.StoreEmail,
		}},
		Printer:      printer,
		PrinterWidth: cfg.PrinterWidth,
		Confirm:      cli,
		Presenter:    cli,
		Logger:       logger,
		Debounce:     cfg.RegisterSearchDebounce,
		CustomerName: cfg.WalkInCustomerName,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("start register session")
	}
	cli.Bind(session, table)

	if err := cli.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("register stopped")
	}
	session.Wait()
}
