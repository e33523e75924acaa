package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mellosd/storefront/internal/catalog"
	"github.com/mellosd/storefront/internal/checkout"
	"github.com/mellosd/storefront/internal/kvstore"
	"github.com/mellosd/storefront/internal/middleware"
	"github.com/mellosd/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLog struct{}

func (nopLog) Info(string, ...zap.Field)  {}
func (nopLog) Error(string, ...zap.Field) {}

type fakeCatalog struct {
	products []models.Product
}

func (f fakeCatalog) GetAll(context.Context) []models.Product { return f.products }

func (f fakeCatalog) GetByTitle(_ context.Context, title string) (models.Product, error) {
	for _, p := range f.products {
		if p.Title == title {
			return p, nil
		}
	}
	return models.Product{}, catalog.ErrNotFound
}

func (f fakeCatalog) Ping(context.Context) bool { return true }

type stubCreator struct {
	calls   int
	session checkout.Session
	url     string
	err     error
}

func (s *stubCreator) CreateSession(_ context.Context, session checkout.Session) (string, error) {
	s.calls++
	s.session = session
	return s.url, s.err
}

var testProducts = []models.Product{
	{Title: "Stake Anchor Set", Price: "$19.99", ImageURL: "https://img.example/anchors.jpg"},
	{Title: "Werewolf Jaw Kit", Price: "$74.95", ImageURL: "https://img.example/jaw.jpg"},
}

func newTestHandler(secretKey string, stub *stubCreator, kv kvstore.KV) http.Handler {
	svc := checkout.NewService(func() string { return secretKey }, stub, nopLog{})
	controller := NewBaseController(context.Background(), fakeCatalog{products: testProducts}, svc, kv, nopLog{})
	return middleware.Session(controller.Route())
}

func TestCreateCheckoutSessionMethodNotAllowed(t *testing.T) {
	handler := newTestHandler("sk_test_1", &stubCreator{}, kvstore.NewMemoryKV())

	r := httptest.NewRequest(http.MethodGet, "/api/create-checkout-session", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	assert.Empty(t, w.Body.String())
}

func TestCreateCheckoutSessionNoItems(t *testing.T) {
	for name, body := range map[string]string{
		"empty items":     `{"items":[]}`,
		"absent items":    `{}`,
		"empty body":      ``,
		"non-array items": `{"items":"anchors"}`,
	} {
		t.Run(name, func(t *testing.T) {
			stub := &stubCreator{}
			handler := newTestHandler("sk_test_1", stub, kvstore.NewMemoryKV())

			r := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "No items provided", resp.Error)
			assert.Zero(t, stub.calls)
		})
	}
}

func TestCreateCheckoutSessionMissingCredential(t *testing.T) {
	stub := &stubCreator{}
	handler := newTestHandler("", stub, kvstore.NewMemoryKV())

	body := `{"items":[{"title":"Stake Anchor Set","price":"$19.99","quantity":1,"image_url":"https://img.example/anchors.jpg"}]}`
	r := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "STRIPE_SECRET_KEY not configured", resp.Error)
	assert.Zero(t, stub.calls, "processor must not be called without a credential")
}

func TestCreateCheckoutSessionSuccess(t *testing.T) {
	stub := &stubCreator{url: "https://checkout.stripe.example/s/42"}
	handler := newTestHandler("sk_test_1", stub, kvstore.NewMemoryKV())

	body := `{"items":[{"title":"Stake Anchor Set","price":"$19.99","quantity":2,"image_url":"https://img.example/anchors.jpg"}]}`
	r := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body))
	r.Header.Set("Origin", "https://shop.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.example/s/42", resp.URL)

	require.Equal(t, 1, stub.calls)
	assert.Equal(t, "https://shop.example/?success=true", stub.session.SuccessURL)
	assert.Equal(t, "https://shop.example/", stub.session.CancelURL)
	require.Len(t, stub.session.LineItems, 1)
	assert.Equal(t, int64(1999), stub.session.LineItems[0].UnitAmount)
	assert.Equal(t, int64(2), stub.session.LineItems[0].Quantity)
}

func TestCreateCheckoutSessionProcessorFailure(t *testing.T) {
	stub := &stubCreator{err: assert.AnError}
	handler := newTestHandler("sk_test_1", stub, kvstore.NewMemoryKV())

	body := `{"items":[{"title":"Stake Anchor Set","price":"$19.99","quantity":1,"image_url":""}]}`
	r := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to create checkout session", resp.Error)
}

func sessionCookie(r *http.Request, id string) {
	r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: id})
}

func TestSuccessMarkerClearsCartAndRedirects(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKV()
	stored := `[{"title":"Stake Anchor Set","price":"$19.99","quantity":3,"image_url":""}]`
	require.NoError(t, kv.Set(ctx, "cart:sess1", []byte(stored)))

	handler := newTestHandler("sk_test_1", &stubCreator{}, kv)

	r := httptest.NewRequest(http.MethodGet, "/?success=true", nil)
	sessionCookie(r, "sess1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	data, err := kv.Get(ctx, "cart:sess1")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestConfirmationShownOnceAfterRedirect(t *testing.T) {
	handler := newTestHandler("sk_test_1", &stubCreator{}, kvstore.NewMemoryKV())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sessionCookie(r, "sess1")
	r.AddCookie(&http.Cookie{Name: flashCookie, Value: "1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Order confirmed")

	// the handler expires the flash cookie so a reload shows no banner
	expired := false
	for _, c := range w.Result().Cookies() {
		if c.Name == flashCookie && c.MaxAge < 0 {
			expired = true
		}
	}
	assert.True(t, expired)
}

func TestCartEndpoints(t *testing.T) {
	kv := kvstore.NewMemoryKV()
	handler := newTestHandler("sk_test_1", &stubCreator{}, kv)

	add := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"title":"Stake Anchor Set"}`))
		sessionCookie(r, "sess1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	require.Equal(t, http.StatusOK, add().Code)
	w := add()
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items      []models.CheckoutItem `json:"items"`
		Total      string                `json:"total"`
		TotalCents int64                 `json:"total_cents"`
		Count      int64                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2), resp.Items[0].Quantity)
	assert.Equal(t, int64(2), resp.Count)
	assert.Equal(t, int64(3998), resp.TotalCents)
	assert.Equal(t, "$39.98", resp.Total)

	// unknown product is rejected
	r := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"title":"nope"}`))
	sessionCookie(r, "sess1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// clearing empties the persisted cart as well
	r = httptest.NewRequest(http.MethodDelete, "/api/cart", nil)
	sessionCookie(r, "sess1")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	data, err := kv.Get(context.Background(), "cart:sess1")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestGetProducts(t *testing.T) {
	handler := newTestHandler("sk_test_1", &stubCreator{}, kvstore.NewMemoryKV())

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Equal(t, testProducts, products)
}
