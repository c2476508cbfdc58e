package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Karannkx/Kxshare/config"
	"github.com/Karannkx/Kxshare/internal/docgen"
	"github.com/Karannkx/Kxshare/internal/share"
)

func SetupRouter(m *share.Manager, gen *docgen.Generator, cfg *config.Config) *chi.Mux {
	h := NewHandler(m, gen, cfg)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/", h.Home)
		r.Post("/", h.CreateShare)
		r.Get("/view/{shareID}", h.ViewShare)
		r.Post("/view/{shareID}", h.ViewShare)
		r.Get("/qr/{shareID}.png", h.ShareQR)
		r.Get("/stats/{shareID}", h.ShareStats)
		r.Post("/generate/{shareID}", h.GenerateDoc)
	})

	// Archive downloads stream until the remote finishes; no request
	// timeout here, the fetcher's own client timeout still applies.
	// POST carries the access password for protected shares; it never
	// rides in the query string.
	r.Get("/download/{shareID}", h.DownloadShare)
	r.Post("/download/{shareID}", h.DownloadShare)

	return r
}
