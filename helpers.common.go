package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// MaxBookStock is the highest stock a book can be given.
const MaxBookStock int = 1_000_000_000

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		return val.(string)
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val := ctx.Value(RequestNumberContextKey); val != nil {
		return val.(uint64)
	}
	return 0
}

// DecodeCreateBookRequestBody is a helper function to read the content of a book creation request.
func DecodeCreateBookRequestBody(r *http.Request, book *NewBook) error {
	if r.Body == nil {
		return errors.New("invalid create book request body")
	}
	return json.NewDecoder(r.Body).Decode(book)
}

// DecodeUpdateBookRequestBody reads a partial book document. Fields
// outside the patchable set (like `id` or `sold_count`) are rejected.
func DecodeUpdateBookRequestBody(r *http.Request, patch *BookPatch) error {
	if r.Body == nil {
		return errors.New("invalid update book request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(patch)
}

// ValidateCreateBookRequestBody is a helper function to check if the content of a book creation request is valid.
func ValidateCreateBookRequestBody(book *NewBook) error {
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)

	if len(book.Title) == 0 {
		return missingFieldError("title")
	}

	if len(book.Author) == 0 {
		return missingFieldError("author")
	}

	if book.Price == nil {
		return missingFieldError("price")
	}
	if err := validatePrice(*book.Price); err != nil {
		return err
	}

	if book.Stock == nil {
		return missingFieldError("stock")
	}
	if err := validateStock(*book.Stock); err != nil {
		return err
	}

	if book.SoldCount != 0 {
		return invalidFieldError{"sold_count", "cannot be set on creation"}
	}

	return nil
}

// ValidateUpdateBookRequestBody is a helper function to check if the content of a book update request is valid.
func ValidateUpdateBookRequestBody(patch *BookPatch) error {
	if patch.IsEmpty() {
		return invalidFieldError{"body", "has no field to update"}
	}

	if patch.Title != nil {
		*patch.Title = strings.TrimSpace(*patch.Title)
		if len(*patch.Title) == 0 {
			return missingFieldError("title")
		}
	}

	if patch.Author != nil {
		*patch.Author = strings.TrimSpace(*patch.Author)
		if len(*patch.Author) == 0 {
			return missingFieldError("author")
		}
	}

	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return err
		}
	}

	if patch.Stock != nil {
		if err := validateStock(*patch.Stock); err != nil {
			return err
		}
	}

	return nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return invalidFieldError{"price", "must be a finite number"}
	}
	if price < 0 {
		return invalidFieldError{"price", "must not be negative"}
	}
	return nil
}

// validateStock keeps the stock within the integers the redis scripts
// encode without switching to the exponent notation.
func validateStock(stock int) error {
	if stock < 0 {
		return invalidFieldError{"stock", "must not be negative"}
	}
	if stock > MaxBookStock {
		return invalidFieldError{"stock", fmt.Sprintf("must not exceed %d", MaxBookStock)}
	}
	return nil
}

// ParseSearchFilters builds the search criteria from the query string.
// Price bounds must be numbers and the lower one can not exceed the upper one.
func ParseSearchFilters(q url.Values) (SearchFilters, error) {
	filters := SearchFilters{
		Title:  strings.TrimSpace(q.Get("title")),
		Author: strings.TrimSpace(q.Get("author")),
	}

	parse := func(name string) (*float64, error) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidFieldError{name, "must be a number"}
		}
		return &v, nil
	}

	var err error
	if filters.MinPrice, err = parse("min_price"); err != nil {
		return filters, err
	}
	if filters.MaxPrice, err = parse("max_price"); err != nil {
		return filters, err
	}

	if filters.MinPrice != nil && filters.MaxPrice != nil && *filters.MinPrice > *filters.MaxPrice {
		return filters, invalidFieldError{"min_price", fmt.Sprintf("must not exceed max_price %v", *filters.MaxPrice)}
	}
	return filters, nil
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
