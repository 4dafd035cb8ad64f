package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	infraafip "github.com/tu-usuario/facturador-afip/internal/infrastructure/afip"
	infrapdf "github.com/tu-usuario/facturador-afip/internal/infrastructure/pdf"
	"github.com/tu-usuario/facturador-afip/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/facturador-afip/internal/interfaces/http"
	"github.com/tu-usuario/facturador-afip/pkg/config"
	"github.com/tu-usuario/facturador-afip/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("afip_env", cfg.AFIP.Environment).
		Int64("cuit", cfg.AFIP.CUIT).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	invoiceRepo := postgres.NewInvoiceRepository(pool)

	// Cadena WSAA: certificado → TRA firmado CMS → ticket de acceso cacheado
	credential, err := infraafip.LoadCredential(cfg.AFIP.CertPath, cfg.AFIP.CertKeyPath, cfg.AFIP.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Str("cert", cfg.AFIP.CertPath).Msg("credencial AFIP")
	}
	wsaaClient := infraafip.NewWSAAClient(credential, cfg.AFIP.Environment, log.Zerolog())
	ticketCache := infraafip.NewTicketCache(wsaaClient, log.Zerolog(), nil)

	// Cliente WSFEv1 (autorización CAE y consultas)
	wsfeClient, err := infraafip.NewWSFEClient(cfg.AFIP.CUIT, cfg.AFIP.Environment, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("cliente WSFE")
	}

	// Numeración por punto de venta, sembrada desde FECompUltimoAutorizado
	seqSource := &infraafip.SequenceSource{Tickets: ticketCache, Client: wsfeClient}
	sequence := billing.NewSequenceTracker(seqSource)

	builder := billing.NewRequestBuilder(cfg.AFIP.AllowedPOS, nil)
	retryPolicy := billing.RetryPolicy{
		MaxAttempts: cfg.AFIP.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.AFIP.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.AFIP.RetryMaxDelayMs) * time.Millisecond,
	}

	issueUC := billing.NewIssueUseCase(
		ticketCache, wsfeClient, sequence, invoiceRepo,
		builder, retryPolicy, log.Zerolog(), nil,
	)
	queryUC := billing.NewQueryUseCase(invoiceRepo, ticketCache, wsfeClient, wsfeClient)

	// PDF: representación gráfica del comprobante autorizado
	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	pdfUC := billing.NewPDFUseCase(invoiceRepo, pdfGenerator, billing.IssuerInfo{
		Name:    cfg.AFIP.IssuerName,
		CUIT:    cfg.AFIP.CUITString(),
		Address: cfg.AFIP.IssuerAddress,
		TaxCond: cfg.AFIP.IssuerTaxCond,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 70, // la emisión puede agotar reintentos contra AFIP
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		IssueUC:   issueUC,
		QueryUC:   queryUC,
		PDFUC:     pdfUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
