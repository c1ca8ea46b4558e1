package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"tanitrust/order"
)

type orderResponse struct {
	Success bool         `json:"success"`
	Order   order.Record `json:"order"`
}

type ordersResponse struct {
	Success bool            `json:"success"`
	Orders  []order.Listing `json:"orders"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := s.orders.List(r.Context(), order.Filter{
		Buyer:  q.Get("buyer"),
		Farmer: q.Get("farmer"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Listing{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{Success: true, Orders: orders})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	rec, err := s.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: rec})
}

func (s *Server) handleSyncOrder(w http.ResponseWriter, r *http.Request) {
	var req order.SyncParams
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.orders.Sync(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info().Str("order_id", rec.ID).Int16("status", int16(rec.Status)).Msg("order synced")
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: rec})
}
