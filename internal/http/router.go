package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, allowOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(allowOrigins))
	r.Use(Correlation)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(ClientID)

		r.Get("/categories", h.Categories)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/featured", h.FeaturedProducts)
			r.Get("/new", h.NewArrivals)
			r.Get("/{productId}", h.GetProduct)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/signin", h.SignIn)
			r.Post("/signout", h.SignOut)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{productId}", h.UpdateItem)
			r.Delete("/items/{productId}", h.RemoveItem)
			r.Put("/drawer", h.SetDrawer)
			r.Post("/checkout", h.Checkout)
		})

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderId}", h.GetOrder)
	})

	return r
}
