package mock

import (
	"net/http"

	"github.com/oklog/ulid/v2"
)

// Order is a protected resource used to exercise authenticated calls.
type Order struct {
	ID       string `json:"id"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

func (s *Service) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, _ := s.orders.Get(currentUserID(r.Context()))
	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Service) createOrder(w http.ResponseWriter, r *http.Request) {
	var order Order
	if !decode(w, r, &order) {
		return
	}
	if order.Item == "" || order.Quantity <= 0 {
		writeDetail(w, http.StatusBadRequest, "item and a positive quantity are required")
		return
	}
	order.ID = ulid.Make().String()
	userID := currentUserID(r.Context())

	s.registerMu.Lock()
	orders, _ := s.orders.Get(userID)
	s.orders.Put(userID, append(orders, order))
	s.registerMu.Unlock()

	writeJSON(w, http.StatusCreated, order)
}
