package models

import (
	"math"
	"strconv"
	"strings"
)

// Product is a single catalog entry. The title doubles as the product key,
// so it must be unique within the catalog.
type Product struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url"`
	Link     string `json:"link"`
}

// CartLine is one product with its quantity inside a cart.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int64   `json:"quantity"`
}

// CheckoutItem is the wire form of a cart line: the same tuple is persisted
// for the cart and submitted to the checkout endpoint.
type CheckoutItem struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
	ImageURL string `json:"image_url"`
}

type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// PriceCents parses a display price like "$19.99" into integer cents.
// The leading currency symbol is optional.
func PriceCents(price string) (int64, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(price), "$")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(value * 100)), nil
}

// FormatCents renders integer cents as a display price, e.g. 3200 -> "$32.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "$" + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
