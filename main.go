package main

import (
	"context"
	"log"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/collections"
	"devis/config"
	"devis/handlers"
	"devis/logger"
	"devis/services"
	"devis/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	restore := logger.Install(zl)
	defer restore()
	defer zl.Sync()

	drafts, closeDrafts, err := openDrafts(cfg, zl)
	if err != nil {
		zap.S().Fatalf("storage: %v", err)
	}
	defer closeDrafts()

	app := pocketbase.New()
	registerCommands(app, cfg, drafts)

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := collections.Setup(app); err != nil {
			return err
		}
		if cfg.App.Seed {
			if err := collections.Seed(app); err != nil {
				zap.S().Warnf("seed data failed: %v", err)
			}
		}
		if err := collections.MigrateQuoteNumbers(app, services.GenerateQuoteNumber); err != nil {
			zap.S().Warnf("quote number migration failed: %v", err)
		}
		for _, st := range drafts.Check(context.Background()) {
			zap.S().Infof("storage: %s available=%t", st.Name, st.Available)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		api := se.Router.Group("/api")
		api.BindFunc(handlers.ActiveCompanyMiddleware(app, cfg.App.DefaultCompany))

		// ── Company ──────────────────────────────────────────────
		api.GET("/company", handlers.HandleCompanyGet(app))
		api.POST("/company", handlers.HandleCompanySave(app))
		api.POST("/company/{id}/activate", handlers.HandleCompanyActivate(app))

		// ── Clients ──────────────────────────────────────────────
		api.GET("/clients", handlers.HandleClientList(app))
		api.POST("/clients", handlers.HandleClientSave(app))
		api.PUT("/clients/{id}", handlers.HandleClientUpdate(app))
		api.DELETE("/clients/{id}", handlers.HandleClientDelete(app))

		// ── Work catalog ─────────────────────────────────────────
		api.GET("/catalog", handlers.HandleCatalogList(app))
		api.GET("/catalog/template", handlers.HandleCatalogTemplate(app))
		api.POST("/catalog/import", handlers.HandleCatalogValidate(app))
		api.POST("/catalog/import/commit", handlers.HandleCatalogImportCommit(app))
		api.POST("/catalog/import/errors", handlers.HandleCatalogErrorReport(app))

		// ── Stored quotes ────────────────────────────────────────
		api.GET("/quotes", handlers.HandleQuoteList(app))
		api.POST("/quotes", handlers.HandleQuoteSave(app))
		api.GET("/quotes/{id}", handlers.HandleQuoteGet(app))
		api.PUT("/quotes/{id}", handlers.HandleQuoteSave(app))
		api.DELETE("/quotes/{id}", handlers.HandleQuoteDelete(app))
		api.GET("/quotes/{id}/pdf", handlers.HandleQuoteExportPDF(app))
		api.GET("/quotes/{id}/xlsx", handlers.HandleQuoteExportExcel(app))
		api.GET("/quotes/{id}/preview", handlers.HandleQuotePreview(app))
		api.POST("/quotes/{id}/send", handlers.HandleQuoteSend(app, cfg.Mail))
		api.POST("/quotes/{id}/archive", handlers.HandleQuoteArchive(app))

		// ── Drafts ───────────────────────────────────────────────
		api.GET("/drafts", handlers.HandleDraftList(drafts))
		api.POST("/drafts", handlers.HandleDraftCreate(drafts))
		api.POST("/quotes/{id}/draft", handlers.HandleDraftPull(app, drafts))
		api.GET("/drafts/{id}", handlers.HandleDraftGet(drafts))
		api.DELETE("/drafts/{id}", handlers.HandleDraftDelete(drafts))
		api.POST("/drafts/{id}/actions", handlers.HandleDraftDispatch(drafts))
		api.GET("/drafts/{id}/totals", handlers.HandleDraftTotals(drafts))
		api.GET("/drafts/{id}/pdf", handlers.HandleDraftPDF(app, drafts))
		api.POST("/drafts/{id}/push", handlers.HandleDraftPush(app, drafts))

		api.GET("/storage/status", handlers.HandleStorageStatus(drafts))

		return se.Next()
	})

	if err := app.Start(); err != nil {
		zap.S().Fatal(err)
	}
}

// openDrafts builds the draft mirror from the Redis (or in-memory) store and
// the SQLite file. A side that cannot be opened is left out.
func openDrafts(cfg *config.Config, zl *zap.Logger) (*storage.Mirror, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	defer cancel()

	kv, err := storage.NewKV(ctx, cfg.Redis, zl.Named("kv"))
	if err != nil {
		return nil, nil, err
	}

	var local storage.DraftStore
	db, err := storage.OpenLocalDB(cfg.LocalDB.Path)
	if err != nil {
		zl.Error("local draft database unavailable", zap.String("path", cfg.LocalDB.Path), zap.Error(err))
	} else {
		local = db
	}

	mirror := storage.NewMirror(storage.NewKVDrafts(kv), local,
		storage.WithLogger(zl.Named("drafts")),
		storage.WithCheckTTL(cfg.Storage.CheckTTL),
		storage.WithTimeout(cfg.Storage.Timeout),
	)
	closeAll := func() {
		if err := kv.Close(); err != nil {
			zl.Warn("close kv", zap.Error(err))
		}
		if db != nil {
			if err := db.Close(); err != nil {
				zl.Warn("close local draft database", zap.Error(err))
			}
		}
	}
	return mirror, closeAll, nil
}
