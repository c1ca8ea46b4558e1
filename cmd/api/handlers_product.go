package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"tanitrust/product"
)

type productResponse struct {
	Success bool           `json:"success"`
	Product product.Record `json:"product"`
}

type pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type productsResponse struct {
	Success    bool             `json:"success"`
	Products   []product.Record `json:"products"`
	Pagination pagination       `json:"pagination"`
}

type deleteResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	DeletedID string `json:"deletedId"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sort, err := product.ParseSort(q.Get("sort"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := product.ParseLimit(q.Get("limit"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := product.ParseOffset(q.Get("offset"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page, err := s.products.List(r.Context(), product.ListParams{
		FarmerAddress:  q.Get("farmer_address"),
		Category:       q.Get("category"),
		IncludeDeleted: product.ParseBool(q.Get("include_deleted")),
		Sort:           sort,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []product.Record{}
	}
	writeJSON(w, http.StatusOK, productsResponse{
		Success:  true,
		Products: items,
		Pagination: pagination{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	rec, err := s.products.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{Success: true, Product: rec})
}

func (s *Server) handleSyncProduct(w http.ResponseWriter, r *http.Request) {
	var req product.SyncParams
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.products.Sync(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{Success: true, Product: rec})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	rec, err := s.products.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info().Str("product_id", rec.ID).Msg("product soft deleted")
	writeJSON(w, http.StatusOK, deleteResponse{
		Success:   true,
		Message:   "Product deleted successfully (soft delete)",
		DeletedID: rec.ID,
	})
}
