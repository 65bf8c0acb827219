package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/tmcgee/sparkinv/internal/config"
	"github.com/tmcgee/sparkinv/internal/db"
	"github.com/tmcgee/sparkinv/internal/docgen"
	"github.com/tmcgee/sparkinv/internal/domain"
	"github.com/tmcgee/sparkinv/internal/extraction"
	claudeextract "github.com/tmcgee/sparkinv/internal/extraction/claude"
	geminiextract "github.com/tmcgee/sparkinv/internal/extraction/gemini"
	ollamaextract "github.com/tmcgee/sparkinv/internal/extraction/ollama"
	"github.com/tmcgee/sparkinv/internal/invoice"
	"github.com/tmcgee/sparkinv/internal/logging"
	"github.com/tmcgee/sparkinv/internal/match"
	"github.com/tmcgee/sparkinv/internal/scan"
	"github.com/tmcgee/sparkinv/internal/scanstore"
	"github.com/tmcgee/sparkinv/internal/store"
	"github.com/tmcgee/sparkinv/internal/study"
	"github.com/tmcgee/sparkinv/internal/web"
)

func main() {
	// A missing .env is fine; configuration falls back to the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer closeLog()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	materials := store.NewMaterialStore(database)
	invoices := store.NewInvoiceStore(database)

	extractor := newExtractor(cfg, logger)
	if extractor == nil {
		return
	}

	scans, err := scanstore.NewDiskStore(cfg.ScanDir)
	if err != nil {
		logger.Error("failed to initialize scan store", "error", err)
		return
	}

	library, err := study.Load()
	if err != nil {
		logger.Error("failed to load question banks", "error", err)
		return
	}

	var docs *docgen.Client
	if cfg.DocGenURL != "" {
		docs = docgen.NewClient(cfg.DocGenURL, cfg.DocGenAPIKey, logger)
	} else {
		logger.Warn("DOCGEN_URL not set; document generation disabled")
	}

	deps := web.Deps{
		Materials: materials,
		Invoices:  invoices,
		Session:   scan.NewSession(),
		Scanner:   scan.NewService(extractor, match.NewMatcher(materials), logger),
		Editor:    invoice.NewEditor(),
		Scans:     scans,
		Study:     library,
		Profile: domain.CompanyProfile{
			Name:      cfg.CompanyName,
			Address:   cfg.CompanyAddress,
			Phone:     cfg.CompanyPhone,
			Email:     cfg.CompanyEmail,
			VATNumber: cfg.CompanyVATNumber,
		},
		Logger: logger,
	}
	if docs != nil {
		deps.Docs = docs
	}

	server := web.NewServer(deps)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newExtractor(cfg *config.Config, logger *slog.Logger) extraction.Extractor {
	switch cfg.ExtractionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when EXTRACTION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude extraction backend")
		return claudeextract.NewClaudeExtractor(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Error("GEMINI_API_KEY is required when EXTRACTION_BACKEND=gemini")
			return nil
		}
		extractor, err := geminiextract.NewGeminiExtractor(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to initialize Gemini extractor", "error", err)
			return nil
		}
		logger.Info("using Gemini extraction backend")
		return extractor
	default:
		logger.Info("using Ollama extraction backend", "model", cfg.OllamaModel)
		return ollamaextract.NewOllamaExtractor(cfg.OllamaHost, cfg.OllamaModel)
	}
}
