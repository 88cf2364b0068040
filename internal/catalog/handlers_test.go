package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/posapi"
)

type fakeQueries struct {
	items       []db.Item
	searchCalls int
	lastSearch  db.SearchItemsParams
	searchErr   error
	created     []db.CreateItemParams
	createErr   error
}

func (f *fakeQueries) SearchItems(_ context.Context, arg db.SearchItemsParams) ([]db.Item, error) {
	f.searchCalls++
	f.lastSearch = arg
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	needle := strings.ToLower(strings.Trim(arg.Pattern, "%"))
	out := []db.Item{}
	for _, it := range f.items {
		if strings.Contains(strings.ToLower(it.Name), needle) || strings.Contains(it.Barcode, needle) {
			out = append(out, it)
		}
		if len(out) == int(arg.Limit) {
			break
		}
	}
	return out, nil
}

func (f *fakeQueries) GetItem(_ context.Context, id int64) (db.Item, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *fakeQueries) CreateItem(_ context.Context, arg db.CreateItemParams) (db.Item, error) {
	if f.createErr != nil {
		return db.Item{}, f.createErr
	}
	f.created = append(f.created, arg)
	it := db.Item{
		ID:         int64(100 + len(f.created)),
		Barcode:    arg.Barcode,
		Name:       arg.Name,
		Category:   arg.Category,
		Quantity:   arg.Quantity,
		Price:      arg.Price,
		Discount:   arg.Discount,
		FinalPrice: arg.FinalPrice,
		TaxRate:    arg.TaxRate,
	}
	f.items = append(f.items, it)
	return it, nil
}

type recordingEmitter struct {
	topics []string
}

func (r *recordingEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	r.topics = append(r.topics, topic+":"+aggregateID)
	return events.Event{Topic: topic, AggregateID: aggregateID}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedItems() []db.Item {
	return []db.Item{
		{ID: 1, Barcode: "8901234567890", Name: "Basmati Rice 1kg", Category: "Grocery", Quantity: db.Numeric(dec("20")), Price: db.Numeric(dec("100")), Discount: db.Numeric(dec("10")), FinalPrice: db.Numeric(dec("90")), TaxRate: db.Numeric(dec("0.05"))},
		{ID: 2, Barcode: "8901234567891", Name: "Brown Rice", Category: "Grocery", Quantity: db.Numeric(dec("5")), Price: db.Numeric(dec("80")), Discount: db.Numeric(dec("0")), FinalPrice: db.Numeric(dec("80"))},
		{ID: 3, Barcode: "4000000000001", Name: "Soap", Category: "Home", Quantity: db.Numeric(dec("50")), Price: db.Numeric(dec("25")), Discount: db.Numeric(dec("0")), FinalPrice: db.Numeric(dec("25"))},
	}
}

func newHandler(t *testing.T, q *fakeQueries, emitter catalog.Emitter) (*catalog.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Queries:     q,
		Cache:       catalog.NewCache(client, time.Minute),
		Events:      emitter,
		SearchLimit: 10,
	})
	require.NoError(t, err)
	return catalog.NewHandler(catalog.HandlerConfig{Service: svc}), mr
}

func search(t *testing.T, h *catalog.Handler, q string) []posapi.Item {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/search?q="+q, nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []posapi.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	return items
}

func TestSearchMatchesAndCaches(t *testing.T) {
	q := &fakeQueries{items: seedItems()}
	h, _ := newHandler(t, q, nil)

	items := search(t, h, "rice")
	require.Len(t, items, 2)
	require.Equal(t, "Basmati Rice 1kg", items[0].Name)
	require.True(t, items[0].Price.Equal(dec("100")))
	require.NotNil(t, items[0].TaxRate)
	require.True(t, items[0].TaxRate.Equal(dec("0.05")))
	require.Nil(t, items[1].TaxRate)
	require.Equal(t, "%rice%", q.lastSearch.Pattern)
	require.EqualValues(t, 10, q.lastSearch.Limit)

	again := search(t, h, "RICE")
	require.Len(t, again, 2)
	require.Equal(t, 1, q.searchCalls)
}

func TestSearchBlankQueryReturnsEmptyArray(t *testing.T) {
	q := &fakeQueries{items: seedItems()}
	h, _ := newHandler(t, q, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
	require.Zero(t, q.searchCalls)
}

func TestSearchEscapesWildcards(t *testing.T) {
	q := &fakeQueries{}
	h, _ := newHandler(t, q, nil)
	search(t, h, "50%25_off")
	require.Equal(t, `%50\%\_off%`, q.lastSearch.Pattern)
}

func TestSearchDatabaseError(t *testing.T) {
	q := &fakeQueries{searchErr: errors.New("connection refused")}
	h, _ := newHandler(t, q, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=rice", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Database error"}`, rec.Body.String())
}

func itemRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/items/"+id, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestItemLookup(t *testing.T) {
	h, _ := newHandler(t, &fakeQueries{items: seedItems()}, nil)

	rec := httptest.NewRecorder()
	h.Item(rec, itemRequest("3"))
	require.Equal(t, http.StatusOK, rec.Code)
	var item posapi.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, "Soap", item.Name)

	for _, id := range []string{"99", "abc", "-1"} {
		rec := httptest.NewRecorder()
		h.Item(rec, itemRequest(id))
		require.Equal(t, http.StatusNotFound, rec.Code, id)
		require.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
	}
}

func postItem(t *testing.T, h *catalog.Handler, body string) (int, common.Result) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/additem", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.AddItem(rec, req)
	var res common.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec.Code, res
}

func TestAddItemComputesFinalPriceAndInvalidatesSearch(t *testing.T) {
	q := &fakeQueries{items: seedItems()}
	emitter := &recordingEmitter{}
	h, _ := newHandler(t, q, emitter)

	require.Len(t, search(t, h, "rice"), 2)

	status, res := postItem(t, h, `{"barcode":"8901234567892","name":"Red Rice","category":"Grocery","quantity":"12","price":"250","discount":"12.5"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.Result{Success: true, Message: catalog.MsgItemAdded}, res)
	require.Len(t, q.created, 1)
	require.True(t, db.Decimal(q.created[0].FinalPrice).Equal(dec("218.75")))
	require.False(t, q.created[0].TaxRate.Valid)
	require.Equal(t, []string{"item.added:101"}, emitter.topics)

	require.Len(t, search(t, h, "rice"), 3)
	require.Equal(t, 2, q.searchCalls)
}

func TestAddItemKeepsExplicitFinalPrice(t *testing.T) {
	q := &fakeQueries{}
	h, _ := newHandler(t, q, nil)

	status, res := postItem(t, h, `{"barcode":"1","name":"Tea","category":"Drinks","quantity":3,"price":40,"discount":0,"finalPrice":39.5,"taxRate":0.12}`)
	require.Equal(t, http.StatusOK, status)
	require.True(t, res.Success)
	require.True(t, db.Decimal(q.created[0].FinalPrice).Equal(dec("39.5")))
	require.True(t, db.Decimal(q.created[0].TaxRate).Equal(dec("0.12")))
}

func TestAddItemValidation(t *testing.T) {
	q := &fakeQueries{}
	h, _ := newHandler(t, q, nil)

	cases := []string{
		`{"name":"Tea","category":"Drinks","quantity":"1","price":"10"}`,
		`{"barcode":"1","name":"  ","category":"Drinks","quantity":"1","price":"10"}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","price":"10"}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":""}`,
	}
	for _, body := range cases {
		status, res := postItem(t, h, body)
		require.Equal(t, http.StatusOK, status, body)
		require.Equal(t, common.Result{Success: false, Message: catalog.MsgRequiredFields}, res, body)
	}
	require.Empty(t, q.created)

	outOfRange := []string{
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":"-40"}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"-2","price":"40"}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":"40","finalPrice":"-1"}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":"40","taxRate":5}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":"40","taxRate":1}`,
		`{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":"40","taxRate":-0.05}`,
	}
	for _, body := range outOfRange {
		status, res := postItem(t, h, body)
		require.Equal(t, http.StatusOK, status, body)
		require.Equal(t, common.Result{Success: false, Message: catalog.MsgInvalidAmounts}, res, body)
	}
	require.Empty(t, q.created)

	status, res := postItem(t, h, `{not json`)
	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, res.Success)
}

func TestAddItemDatabaseError(t *testing.T) {
	h, _ := newHandler(t, &fakeQueries{createErr: errors.New("duplicate")}, nil)

	status, res := postItem(t, h, `{"barcode":"1","name":"Tea","category":"Drinks","quantity":"1","price":"10"}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, common.Result{Success: false, Message: catalog.MsgInsertFailed}, res)
}

func TestFinalPrice(t *testing.T) {
	require.True(t, catalog.FinalPrice(dec("99.99"), dec("33")).Equal(dec("66.99")))
	require.True(t, catalog.FinalPrice(dec("10"), dec("0")).Equal(dec("10")))
}
