package controllers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"
	"github.com/mellosd/storefront/internal/cart"
	"github.com/mellosd/storefront/internal/checkout"
	"github.com/mellosd/storefront/internal/kvstore"
	"github.com/mellosd/storefront/internal/middleware"
	"github.com/mellosd/storefront/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//go:embed templates
var templatesFS embed.FS

// flashCookie carries the order-confirmed banner across the redirect that
// strips the success marker, so a reload does not re-trigger it.
const flashCookie = "order_confirmed"

// Catalog interface for product lookups
type Catalog interface {
	GetAll(context.Context) []models.Product
	GetByTitle(context.Context, string) (models.Product, error)
	Ping(context.Context) bool
}

// Checkout interface for session creation
type Checkout interface {
	CreateSession(ctx context.Context, origin string, items []models.CheckoutItem) (string, error)
}

// Log interface for logging
type Log interface {
	Info(string, ...zapcore.Field)
	Error(string, ...zapcore.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	ctx      context.Context
	catalog  Catalog
	checkout Checkout
	kv       kvstore.KV
	log      Log
	tmpl     *template.Template
}

// NewBaseController creates a new BaseController instance
func NewBaseController(ctx context.Context, catalog Catalog, co Checkout, kv kvstore.KV, log Log) *BaseController {
	instance := &BaseController{
		ctx:      ctx,
		catalog:  catalog,
		checkout: co,
		kv:       kv,
		log:      log,
		tmpl:     template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}

	return instance
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", h.index)
	r.Post("/cart/add", h.addItemForm)
	r.Post("/cart/checkout", h.placeOrder)

	// registered for all methods so non-POST can answer 405 with an Allow header
	r.Handle("/api/create-checkout-session", http.HandlerFunc(h.createCheckoutSession))

	r.Group(func(r chi.Router) {
		r.Use(middleware.CompressResponseMiddleware)
		r.Get("/api/products", h.getProducts)
	})

	r.Get("/api/cart", h.getCart)
	r.Post("/api/cart/items", h.addItem)
	r.Patch("/api/cart/items/{title}", h.changeQuantity)
	r.Delete("/api/cart/items/{title}", h.removeItem)
	r.Delete("/api/cart", h.clearCart)
	r.Get("/api/ping", h.ping)

	return r
}

// cartStore rebuilds the session's cart from the KV for this request.
func (h *BaseController) cartStore(r *http.Request) *cart.Store {
	return cart.NewStore(r.Context(), h.kv, "cart:"+middleware.SessionID(r.Context()), h.log)
}

type indexData struct {
	Products       []models.Product
	Lines          []models.CartLine
	Total          string
	Count          int64
	OrderConfirmed bool
}

func (h *BaseController) index(w http.ResponseWriter, r *http.Request) {
	// the processor redirects back here with the success marker; clear the
	// cart and strip the marker from the visible URL
	if r.URL.Query().Get("success") == "true" {
		s := h.cartStore(r)
		s.Clear(r.Context())
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "1", Path: "/", MaxAge: 60})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	confirmed := false
	if c, err := r.Cookie(flashCookie); err == nil && c.Value == "1" {
		confirmed = true
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	}

	s := h.cartStore(r)
	data := indexData{
		Products:       h.catalog.GetAll(r.Context()),
		Lines:          s.Snapshot(),
		Total:          models.FormatCents(s.Total()),
		Count:          s.Count(),
		OrderConfirmed: confirmed,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		h.log.Error("failed to render page", zap.Error(err))
	}
}

func (h *BaseController) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// a non-array items field is the same client mistake as no items
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "items" {
			h.checkoutError(w, checkout.ErrNoItems)
			return
		}
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	sessionURL, err := h.checkout.CreateSession(r.Context(), requestOrigin(r), req.Items)
	if err != nil {
		h.checkoutError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CheckoutResponse{URL: sessionURL})
}

// placeOrder is the form flow: it snapshots the server-held cart and sends
// the browser to the hosted checkout page.
func (h *BaseController) placeOrder(w http.ResponseWriter, r *http.Request) {
	s := h.cartStore(r)

	sessionURL, err := h.checkout.CreateSession(r.Context(), requestOrigin(r), s.Items())
	if err != nil {
		if errors.Is(err, checkout.ErrNoItems) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Error(w, checkout.ErrSessionFailed.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, sessionURL, http.StatusSeeOther)
}

func (h *BaseController) getProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.GetAll(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(products); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type cartResponse struct {
	Items      []models.CheckoutItem `json:"items"`
	Total      string                `json:"total"`
	TotalCents int64                 `json:"total_cents"`
	Count      int64                 `json:"count"`
}

func (h *BaseController) writeCart(w http.ResponseWriter, s *cart.Store) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cartResponse{
		Items:      s.Items(),
		Total:      models.FormatCents(s.Total()),
		TotalCents: s.Total(),
		Count:      s.Count(),
	})
}

func (h *BaseController) getCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.cartStore(r))
}

func (h *BaseController) addItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		h.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	defer r.Body.Close()

	product, err := h.catalog.GetByTitle(r.Context(), req.Title)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "unknown product")
		return
	}

	s := h.cartStore(r)
	s.Add(r.Context(), product)
	h.writeCart(w, s)
}

// addItemForm is the no-script add-to-cart path used by the product grid.
func (h *BaseController) addItemForm(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	product, err := h.catalog.GetByTitle(r.Context(), title)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s := h.cartStore(r)
	s.Add(r.Context(), product)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *BaseController) changeQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		h.writeError(w, http.StatusBadRequest, "delta must be a non-zero integer")
		return
	}
	defer r.Body.Close()

	s := h.cartStore(r)
	s.ChangeQuantity(r.Context(), pathTitle(r), req.Delta)
	h.writeCart(w, s)
}

func (h *BaseController) removeItem(w http.ResponseWriter, r *http.Request) {
	s := h.cartStore(r)
	s.Remove(r.Context(), pathTitle(r))
	h.writeCart(w, s)
}

func (h *BaseController) clearCart(w http.ResponseWriter, r *http.Request) {
	s := h.cartStore(r)
	s.Clear(r.Context())
	h.writeCart(w, s)
}

func (h *BaseController) ping(w http.ResponseWriter, r *http.Request) {
	if !h.catalog.Ping(r.Context()) {
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *BaseController) checkoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrNoSecretKey):
		h.writeError(w, http.StatusInternalServerError, checkout.ErrNoSecretKey.Error())
	case errors.Is(err, checkout.ErrNoItems):
		h.writeError(w, http.StatusBadRequest, checkout.ErrNoItems.Error())
	case errors.Is(err, checkout.ErrItemTitle),
		errors.Is(err, checkout.ErrItemPrice),
		errors.Is(err, checkout.ErrItemQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, checkout.ErrSessionFailed.Error())
	}
}

func (h *BaseController) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// pathTitle extracts the product title URL parameter.
func pathTitle(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if title, err := url.PathUnescape(raw); err == nil {
		return title
	}
	return raw
}

// requestOrigin derives the origin the redirect URLs are built from: the
// Origin header when the browser sends one, otherwise the request host.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
