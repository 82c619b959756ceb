package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
//
//	@Summary		Service status
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		StatusResponse{
			RequestID: requestID,
			Status:    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			Message:   "Hello. Books store api is available. Enjoy :)",
		},
	); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send status response", zap.Error(err))
	}
}

// sendError logs the failure cause and sends the error response matching its kind.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, cause error, logMsg string, data interface{}) {
	logger := api.GetLoggerFromContext(r.Context())
	status, message := ErrorStatus(cause)
	if status >= http.StatusInternalServerError {
		logger.Error(logMsg, zap.Error(cause))
	} else {
		logger.Warn(logMsg, zap.Error(cause))
	}
	errResp := NewAPIError(GetValueFromContext(r.Context(), RequestIDContextKey), status, message, data)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
}

// sendResponse sends a success response.
func (api *APIHandler) sendResponse(w http.ResponseWriter, r *http.Request, status int, message string, total *int, data interface{}) {
	resp := GenericResponse(GetValueFromContext(r.Context(), RequestIDContextKey), status, message, total, data)
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}

// CreateBook adds a new book to the catalog.
//
//	@Summary		Add a book
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			book	body		NewBook	true	"book to add, id is optional"
//	@Success		201		{object}	APIResponse{data=Book}
//	@Failure		400		{object}	APIError
//	@Router			/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := NewBook{}
	err := DecodeCreateBookRequestBody(r, &req)
	if err != nil {
		api.sendError(w, r, invalidFieldError{"body", "is not a valid book document"}, "failed to decode book", EmptyData)
		return
	}

	book, err := api.bookService.Create(r.Context(), req)
	if err != nil {
		api.sendError(w, r, err, "failed to create book", book)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to create book", zap.String("book.id", book.ID))
	api.sendResponse(w, r, http.StatusCreated, "Book added successfully.", nil, book)
}

// GetAllBooks lists the books of the catalog.
//
//	@Summary		List books
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	APIResponse{data=[]Book}
//	@Header			200	{integer}	X-Total-Count	"number of books returned"
//	@Router			/books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := api.bookService.List(r.Context())
	if err != nil {
		api.sendError(w, r, err, "failed to get all books", []Book{})
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get all books")
	total := len(books)
	api.sendResponse(w, r, http.StatusOK, "All books fetched successfully.", &total, books)
}

// GetOneBook fetches a single book.
//
//	@Summary		Get a book
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"book id"
//	@Success		200	{object}	APIResponse{data=Book}
//	@Failure		404	{object}	APIError
//	@Router			/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	book, err := api.bookService.Get(r.Context(), id)
	if err != nil {
		api.sendError(w, r, err, "failed to get book", EmptyData)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get book", zap.String("book.id", id))
	api.sendResponse(w, r, http.StatusOK, "Book fetched successfully.", nil, book)
}

// UpdateBook applies a partial update to a book.
//
//	@Summary		Update a book
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"book id"
//	@Param			patch	body		BookPatch	true	"fields to update"
//	@Success		200		{object}	APIResponse
//	@Failure		400		{object}	APIError
//	@Failure		404		{object}	APIError
//	@Router			/books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	var patch BookPatch
	err := DecodeUpdateBookRequestBody(r, &patch)
	if err != nil {
		api.sendError(w, r, invalidFieldError{"body", "is not a valid book update: " + err.Error()}, "failed to decode book update", EmptyData)
		return
	}

	outcome, err := api.bookService.Update(r.Context(), id, patch)
	if err != nil {
		api.sendError(w, r, err, "failed to update book", EmptyData)
		return
	}

	message := "Book updated successfully."
	if outcome == BookUnchanged {
		message = "Book already up to date."
	}
	api.GetLoggerFromContext(r.Context()).Info("success to update book", zap.String("book.id", id), zap.Bool("book.changed", outcome == BookUpdated))
	api.sendResponse(w, r, http.StatusOK, message, nil, map[string]string{"id": id})
}

// DeleteOneBook removes a book.
//
//	@Summary		Delete a book
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"book id"
//	@Success		200	{object}	APIResponse
//	@Failure		404	{object}	APIError
//	@Router			/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	err := api.bookService.Delete(r.Context(), id)
	if err != nil {
		api.sendError(w, r, err, "failed to delete book", EmptyData)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to delete book", zap.String("book.id", id))
	api.sendResponse(w, r, http.StatusOK, "Book deleted successfully.", nil, map[string]string{"id": id})
}

// SearchBooks lists the books matching the query criteria.
//
//	@Summary		Search books
//	@Tags			books
//	@Produce		json
//	@Param			title		query		string	false	"case-insensitive part of the title"
//	@Param			author		query		string	false	"case-insensitive part of the author"
//	@Param			min_price	query		number	false	"lowest price, inclusive"
//	@Param			max_price	query		number	false	"highest price, inclusive"
//	@Success		200			{object}	APIResponse{data=[]Book}
//	@Failure		400			{object}	APIError
//	@Router			/search [get]
func (api *APIHandler) SearchBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filters, err := ParseSearchFilters(r.URL.Query())
	if err != nil {
		api.sendError(w, r, err, "failed to parse search filters", []Book{})
		return
	}

	books, err := api.bookService.Search(r.Context(), filters)
	if err != nil {
		api.sendError(w, r, err, "failed to search books", []Book{})
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to search books", zap.Int("books.found", len(books)))
	total := len(books)
	api.sendResponse(w, r, http.StatusOK, "Books searched successfully.", &total, books)
}

// PurchaseBook sells one unit of a book.
//
//	@Summary		Buy a book
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"book id"
//	@Success		200	{object}	APIResponse{data=Book}
//	@Failure		400	{object}	APIError
//	@Router			/books/{id}/buy [post]
func (api *APIHandler) PurchaseBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	book, err := api.bookService.Purchase(r.Context(), id)
	if err != nil {
		api.sendError(w, r, err, "failed to purchase book", EmptyData)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to purchase book",
		zap.String("book.id", id),
		zap.Int("book.stock", book.Stock),
		zap.Int("book.sold", book.SoldCount),
	)
	api.sendResponse(w, r, http.StatusOK, "Book purchased successfully.", nil, book)
}
