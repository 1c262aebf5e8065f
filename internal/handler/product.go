package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shelfd/shelf/internal/model"
	"github.com/shelfd/shelf/internal/store"
	"github.com/shelfd/shelf/internal/upload"
)

// maxFormMemory bounds the in-memory portion of multipart parsing; larger
// parts spill to temp files.
const maxFormMemory = 8 << 20

// maxFormBody caps the whole request body: one image at the upload limit
// plus room for the text fields and multipart framing.
const maxFormBody = upload.MaxSize + maxFormMemory

// ProductHandler serves the public catalog reads and the admin-gated writes.
type ProductHandler struct {
	store   *store.Store
	uploads *upload.Store
	baseURL string
	logger  *slog.Logger
}

// NewProductHandler creates a ProductHandler. baseURL, when non-empty, is
// prefixed onto stored image paths to form absolute URLs in responses.
func NewProductHandler(st *store.Store, uploads *upload.Store, baseURL string, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		store:   st,
		uploads: uploads,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// withImageURL returns a copy of p with the image path expanded to an
// absolute URL.
func (h *ProductHandler) withImageURL(p model.Product) model.Product {
	if p.Image != nil && h.baseURL != "" && strings.HasPrefix(*p.Image, "/") {
		abs := h.baseURL + *p.Image
		p.Image = &abs
	}
	return p
}

// List returns all products.
// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	out := make([]model.Product, len(products))
	for i, p := range products {
		out[i] = h.withImageURL(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns a single product by ID.
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	p, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("get product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, h.withImageURL(*p))
}

// Create adds a new product from a multipart form: name, description, price,
// and an optional image file.
// POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	description := strings.TrimSpace(r.FormValue("description"))
	priceRaw := strings.TrimSpace(r.FormValue("price"))
	if name == "" || description == "" || priceRaw == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: name, description, price")
		return
	}

	price, err := parsePrice(priceRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Validate and persist the image, if any, before touching the database.
	imageRef, err := h.saveImage(r)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidUpload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("store upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	p := &model.Product{
		Name:        name,
		Description: description,
		Price:       price,
		Image:       imageRef,
	}
	if err := h.store.CreateProduct(r.Context(), p); err != nil {
		// The record write failed after the file write succeeded; remove the
		// file so it doesn't become orphaned storage.
		h.discardUpload(imageRef)
		h.logger.Error("create product", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	h.logger.Info("product created", "id", p.ID, "name", p.Name)
	writeJSON(w, http.StatusCreated, h.withImageURL(*p))
}

// Update modifies an existing product from a multipart form. Absent fields
// keep their stored values; a new image replaces (and removes) the old one.
// PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	var upd model.ProductUpdate
	if name := strings.TrimSpace(r.FormValue("name")); name != "" {
		upd.Name = &name
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		upd.Description = &description
	}
	if priceRaw := strings.TrimSpace(r.FormValue("price")); priceRaw != "" {
		price, err := parsePrice(priceRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		upd.Price = &price
	}

	imageRef, err := h.saveImage(r)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidUpload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("store upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	upd.Image = imageRef

	p, oldImage, err := h.store.UpdateProduct(r.Context(), id, upd)
	if err != nil {
		h.discardUpload(imageRef)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("update product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	// The replaced image is no longer referenced; remove it best-effort.
	h.discardUpload(oldImage)

	h.logger.Info("product updated", "id", p.ID)
	writeJSON(w, http.StatusOK, h.withImageURL(*p))
}

// Delete removes a product and, best-effort, its stored image.
// DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	image, err := h.store.DeleteProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("delete product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	h.discardUpload(image)

	h.logger.Info("product deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product deleted successfully",
	})
}

// saveImage persists the form's "image" file if one was sent. Returns nil
// with no error when the field is absent.
func (h *ProductHandler) saveImage(r *http.Request) (*string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["image"]) == 0 {
		return nil, nil
	}
	var fh *multipart.FileHeader = r.MultipartForm.File["image"][0]
	ref, err := h.uploads.Save(fh)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// discardUpload is the single compensation step for file/record write pairs:
// it removes a stored file whose database reference was never written (or was
// just replaced). Failures are logged, never propagated — the record is the
// source of truth and an orphaned file is the accepted worst case.
func (h *ProductHandler) discardUpload(ref *string) {
	if ref == nil {
		return
	}
	if err := h.uploads.Discard(*ref); err != nil {
		h.logger.Warn("failed to remove uploaded file", "path", *ref, "error", err)
	}
}

// parsePrice parses a decimal price, rejecting negatives and non-numbers.
func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("Price must be a number")
	}
	if price < 0 || price != price || price > 1e12 { // NaN and absurd values
		return 0, errors.New("Price must be a non-negative number")
	}
	return price, nil
}
