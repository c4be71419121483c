package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

// Transaction exported for testing purposes
type Transaction struct {
	Service *services.LedgerService
}

// CreateTransactionHandler stores a manual transaction
func (t Transaction) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTransactionRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	tx, err := t.Service.Create(ctx, api.ActorFrom(r.Context()), in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, tx)
}

// TransactionByIDHandler returns a single transaction
func (t Transaction) TransactionByIDHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transaction_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	tx, err := t.Service.Get(ctx, api.ActorFrom(r.Context()), transactionID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, tx)
}

// UpdateTransactionHandler applies an admin edit
func (t Transaction) UpdateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transaction_id"]

	var in models.UpdateTransactionRequest
	if !decodeBody(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	tx, err := t.Service.Update(ctx, api.ActorFrom(r.Context()), transactionID, in)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, tx)
}

// CheckoutTransactionHandler opens a payment session for an unpaid transaction
func (t Transaction) CheckoutTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["transaction_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	checkout, err := t.Service.Checkout(ctx, api.ActorFrom(r.Context()), transactionID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, checkout)
}

// TransactionHandler returns every transaction
func (t Transaction) TransactionHandler(w http.ResponseWriter, r *http.Request) {
	t.list(w, r, t.Service.List)
}

// MyTransactionsHandler returns the caller's transactions
func (t Transaction) MyTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	t.list(w, r, t.Service.ListForUser)
}

func (t Transaction) list(w http.ResponseWriter, r *http.Request, fn func(context.Context, models.Actor, databases.Page) ([]models.Transaction, error)) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	list, err := fn(ctx, api.ActorFrom(r.Context()), api.PageFrom(r))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if list == nil {
		list = []models.Transaction{}
	}
	api.WriteJSON(w, http.StatusOK, list)
}
