package invoices

import "github.com/go-chi/chi/v5"

// Routes mounts the invoice endpoints. extra mounts additional routes inside
// the single-invoice subtree; the ledger read endpoints hook in there.
func Routes(r chi.Router, h *Handler, extra func(chi.Router)) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Post("/issue", h.Issue)
			r.Get("/payments", h.ListPayments)
			r.Post("/payments", h.RecordPayment)
			r.Get("/credit-notes", h.ListCreditNotes)
			r.Post("/corrections", h.AddCorrectionNote)
			if extra != nil {
				extra(r)
			}
		})
	})
	r.Post("/credit-notes", h.CreateCreditNote)
}
