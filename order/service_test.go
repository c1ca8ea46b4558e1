package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanitrust/amount"
)

type fakeStore struct {
	rows     map[string]Record
	inserted []SyncParams
	listed   []Filter
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]Record{}}
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status *Status) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec, ok := f.rows[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if status != nil {
		rec.Status = *status
	}
	f.rows[id] = rec
	return rec, nil
}

func (f *fakeStore) Insert(_ context.Context, p SyncParams) (Record, error) {
	f.inserted = append(f.inserted, p)
	status := StatusEscrowed
	if p.Status != nil {
		status = *p.Status
	}
	rec := Record{
		ID: p.ID, ProductID: p.ProductID, Buyer: p.Buyer, Farmer: p.Farmer,
		Quantity: p.Quantity.Value, TotalPrice: p.TotalPrice.Value, Deadline: p.Deadline.Value,
		Status: status,
	}
	f.rows[p.ID] = rec
	return rec, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Record, error) {
	rec, ok := f.rows[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) List(_ context.Context, filter Filter) ([]Listing, error) {
	f.listed = append(f.listed, filter)
	return nil, nil
}

func decodeSync(t *testing.T, body string) SyncParams {
	t.Helper()
	var p SyncParams
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func TestSync_CreatesWithDefaultStatus(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	p := decodeSync(t, `{"sui_object_id":"o1","product_id":"p1","buyer":"0xB","farmer":"0xF","quantity":"7","total_price":123456789012,"deadline":"1700000000000"}`)
	rec, err := svc.Sync(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StatusEscrowed, rec.Status)
	assert.Equal(t, "0xb", rec.Buyer)
	require.Len(t, store.inserted, 1)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"quantity":"7"`)
	assert.Contains(t, string(out), `"total_price":"123456789012"`)
}

func TestSync_ExistingOrderOnlyUpdatesStatus(t *testing.T) {
	store := newFakeStore()
	store.rows["o1"] = Record{ID: "o1", ProductID: "p1", Buyer: "0xb", Farmer: "0xf", Quantity: amount.MustParse("7"), Status: StatusEscrowed}
	svc := NewService(store)

	p := decodeSync(t, `{"sui_object_id":"o1","product_id":"other","quantity":"99","status":3}`)
	rec, err := svc.Sync(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StatusRefunded, rec.Status)
	assert.Equal(t, "p1", rec.ProductID)
	assert.Equal(t, "7", rec.Quantity.String())
	assert.Empty(t, store.inserted)
}

func TestSync_Validation(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.Sync(context.Background(), SyncParams{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := Status(9)
	_, err = svc.Sync(context.Background(), SyncParams{ID: "o1", Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// new order without quantities
	_, err = svc.Sync(context.Background(), SyncParams{ID: "o2", ProductID: "p", Buyer: "b", Farmer: "f"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSync_StoreFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")
	svc := NewService(store)

	_, err := svc.Sync(context.Background(), SyncParams{ID: "o1"})
	assert.EqualError(t, err, "connection reset")
	assert.Empty(t, store.inserted)
}

func TestList_NormalizesFilter(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	_, err := svc.List(context.Background(), Filter{Buyer: " 0xABC "})
	require.NoError(t, err)
	assert.Equal(t, []Filter{{Buyer: "0xabc"}}, store.listed)
}
