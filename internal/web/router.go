package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/murshop24/admin/internal/handlers"
)

//go:embed templates
var templateFS embed.FS

// Templates returns the embedded layouts, partials and pages.
func Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func Router(admin *handlers.Admin, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)

	r.Get("/", handlers.Home)
	r.Get("/healthz", handlers.Health)

	r.Route("/admin", func(ar chi.Router) {
		ar.Get("/login", admin.LoginForm)
		ar.Post("/login", admin.LoginSubmit)
		ar.Post("/logout", admin.Logout)

		ar.Group(func(ag chi.Router) {
			ag.Use(admin.RequireAdmin)

			ag.Get("/", admin.Index)

			// Telegram
			ag.Get("/operators", admin.Operators)
			ag.Get("/operators/new", admin.OperatorForm)
			ag.Post("/operators", admin.OperatorSave)
			ag.Get("/operators/{id}", admin.OperatorForm)
			ag.Post("/operators/{id}", admin.OperatorSave)
			ag.Post("/operators/{id}/delete", admin.OperatorDelete)

			ag.Get("/reviews-channels", admin.ReviewsChannels)
			ag.Get("/reviews-channels/new", admin.ReviewsChannelForm)
			ag.Post("/reviews-channels", admin.ReviewsChannelSave)
			ag.Get("/reviews-channels/{id}", admin.ReviewsChannelForm)
			ag.Post("/reviews-channels/{id}", admin.ReviewsChannelSave)
			ag.Post("/reviews-channels/{id}/delete", admin.ReviewsChannelDelete)

			ag.Get("/bots", admin.Bots)
			ag.Get("/bots/new", admin.BotForm)
			ag.Post("/bots", admin.BotSave)
			ag.Get("/bots/{id}", admin.BotForm)
			ag.Post("/bots/{id}", admin.BotSave)
			ag.Post("/bots/{id}/delete", admin.BotDelete)
			ag.Get("/bots/{id}/qr.png", admin.BotQR)

			ag.Get("/customers", admin.Customers)
			ag.Post("/customers/{id}/delete", admin.CustomerDelete)

			// Product
			ag.Get("/products", admin.Products)
			ag.Get("/products/new", admin.ProductForm)
			ag.Post("/products", admin.ProductSave)
			ag.Get("/products/{id}", admin.ProductForm)
			ag.Post("/products/{id}", admin.ProductSave)
			ag.Post("/products/{id}/delete", admin.ProductDelete)

			ag.Get("/prices", admin.Prices)
			ag.Get("/prices/new", admin.PriceForm)
			ag.Post("/prices", admin.PriceSave)
			ag.Get("/prices/{id}", admin.PriceForm)
			ag.Post("/prices/{id}", admin.PriceSave)
			ag.Post("/prices/{id}/delete", admin.PriceDelete)

			// Payment
			ag.Get("/banks", admin.Banks)
			ag.Get("/banks/new", admin.BankForm)
			ag.Post("/banks", admin.BankSave)
			ag.Get("/banks/{id}", admin.BankForm)
			ag.Post("/banks/{id}", admin.BankSave)
			ag.Post("/banks/{id}/delete", admin.BankDelete)

			ag.Get("/bank-accounts", admin.BankAccounts)
			ag.Get("/bank-accounts/new", admin.BankAccountForm)
			ag.Post("/bank-accounts", admin.BankAccountSave)
			ag.Get("/bank-accounts/{id}", admin.BankAccountForm)
			ag.Post("/bank-accounts/{id}", admin.BankAccountSave)
			ag.Post("/bank-accounts/{id}/delete", admin.BankAccountDelete)

			ag.Get("/qiwi-accounts", admin.QiwiAccounts)
			ag.Get("/qiwi-accounts/new", admin.QiwiAccountForm)
			ag.Post("/qiwi-accounts", admin.QiwiAccountSave)
			ag.Get("/qiwi-accounts/{id}", admin.QiwiAccountForm)
			ag.Post("/qiwi-accounts/{id}", admin.QiwiAccountSave)
			ag.Post("/qiwi-accounts/{id}/delete", admin.QiwiAccountDelete)

			// Shop
			ag.Get("/cities", admin.Cities)
			ag.Get("/cities/new", admin.CityForm)
			ag.Post("/cities", admin.CitySave)
			ag.Get("/cities/{id}", admin.CityForm)
			ag.Post("/cities/{id}", admin.CitySave)
			ag.Post("/cities/{id}/delete", admin.CityDelete)

			// Orders come from the bots: no create, no delete.
			ag.Get("/orders", admin.Orders)
			ag.Get("/orders.csv", admin.OrdersCSV)
			ag.Get("/orders/{id}", admin.OrderForm)
			ag.Post("/orders/{id}", admin.OrderSave)
		})
	})

	return r
}
