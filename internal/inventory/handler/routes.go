package handler

import (
	"github.com/go-chi/chi/v5"
)

// Handlers groups the inventory route handlers
type Handlers struct {
	Items         *ItemHandler
	Batches       *BatchHandler
	Categories    *CategoryHandler
	Transactions  *TransactionHandler
	Notifications *NotificationHandler
	Reports       *ReportHandler
	Import        *ImportHandler
	Aggregates    *AggregateHandler
}

// Mount registers the inventory routes on r, which is expected to be
// mounted at /api/inventory behind authentication.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.Items.List)
		r.Post("/", h.Items.Create)
		r.Get("/distinct", h.Items.Distinct)
		r.Get("/{id}", h.Items.Get)
		r.Put("/{id}", h.Items.Update)
		r.Delete("/{id}", h.Items.Delete)
		r.Post("/{id}/reduce-stock", h.Items.ReduceStock)
		r.Get("/{id}/history", h.Items.History)
		r.Get("/{id}/batches", h.Batches.ListByItem)
	})

	r.Route("/batches", func(r chi.Router) {
		r.Post("/", h.Batches.Create)
		r.Get("/{id}", h.Batches.Get)
		r.Put("/{id}", h.Batches.Update)
		r.Post("/{id}/dispose", h.Batches.Dispose)
	})

	r.Get("/low-stock", h.Items.LowStock)
	r.Get("/expiring-batches", h.Batches.Expiring)

	r.Get("/transactions", h.Transactions.List)
	r.Post("/transactions", h.Transactions.Create)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.Notifications.List)
		r.Post("/", h.Notifications.Create)
		r.Post("/mark-all-seen", h.Notifications.MarkAllSeen)
		r.Put("/{id}", h.Notifications.MarkSeen)
		r.Patch("/{id}", h.Notifications.MarkSeen)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.Categories.List)
		r.Post("/", h.Categories.Create)
		r.Get("/{id}", h.Categories.Get)
		r.Put("/{id}", h.Categories.Update)
		r.Delete("/{id}", h.Categories.Delete)
	})

	r.Get("/report", h.Reports.Get)
	r.Get("/report/export", h.Reports.Export)

	r.Post("/upload-excel", h.Import.Upload)

	r.Get("/aggregates/verify/{id}", h.Aggregates.Verify)
	r.Post("/aggregates/repair", h.Aggregates.Repair)
}
