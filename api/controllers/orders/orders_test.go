package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrdersService struct {
	placed  internalorders.PlaceOrderInput
	updated internalorders.UpdateOrderInput
	listed  internalorders.ListInput
	getErr  error
}

func (s *stubOrdersService) PlaceOrder(_ context.Context, input internalorders.PlaceOrderInput) (*internalorders.OrderDTO, error) {
	s.placed = input
	if len(input.Items) == 0 {
		return nil, pkgerrors.Required("items")
	}
	return &internalorders.OrderDTO{
		ID:     uuid.New(),
		Total:  input.Total,
		Status: internalorders.InitialStatus(input.Channel),
		Items:  []internalorders.OrderItemDTO{{ProductID: input.Items[0].ProductID, Quantity: input.Items[0].Quantity}},
	}, nil
}

func (s *stubOrdersService) GetOrder(_ context.Context, id uuid.UUID) (*internalorders.OrderDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &internalorders.OrderDTO{ID: id}, nil
}

func (s *stubOrdersService) UpdateOrder(_ context.Context, id uuid.UUID, input internalorders.UpdateOrderInput) (*internalorders.OrderDTO, error) {
	s.updated = input
	return &internalorders.OrderDTO{ID: id, Status: enums.OrderStatus(*input.Status)}, nil
}

func (s *stubOrdersService) ListOrders(_ context.Context, input internalorders.ListInput) (*pagination.Page[internalorders.OrderDTO], error) {
	s.listed = input
	return &pagination.Page[internalorders.OrderDTO]{Items: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrdersService) ListEvents(_ context.Context, id uuid.UUID) ([]internalorders.EventDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return []internalorders.EventDTO{{ID: uuid.New(), Type: enums.EventOrderCreated}}, nil
}

func (s *stubOrdersService) Track(_ context.Context, reference string) (*internalorders.Tracking, error) {
	return internalorders.Track(reference, time.Now())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPlaceScenarioPayload(t *testing.T) {
	svc := &stubOrdersService{}
	body := `{"items":[{"productId":"P1","quantity":2,"price":10}],"customerName":"Ada","customerPhone":"123","subtotal":20,"shipping":5,"total":25,"unknownField":"ignored"}`

	resp := httptest.NewRecorder()
	Place(svc, internalorders.ChannelStorefront, logger.Nop())(resp, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, resp.Code)

	env := decode(t, resp)
	require.True(t, env.Success)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, float64(25), data["total"])
	assert.Len(t, data["items"], 1)

	require.Len(t, svc.placed.Items, 1)
	assert.True(t, svc.placed.Items[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, internalorders.ChannelStorefront, svc.placed.Channel)
}

func TestPlaceChannelCannotBeSpoofed(t *testing.T) {
	svc := &stubOrdersService{}
	body := `{"items":[{"productId":"P1","quantity":1,"price":3}],"Channel":"admin"}`
	resp := httptest.NewRecorder()
	Place(svc, internalorders.ChannelStorefront, logger.Nop())(resp, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, internalorders.ChannelStorefront, svc.placed.Channel)

	resp = httptest.NewRecorder()
	Place(svc, internalorders.ChannelAdmin, logger.Nop())(resp, httptest.NewRequest(http.MethodPost, "/api/admin/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, internalorders.ChannelAdmin, svc.placed.Channel)
}

func TestPlaceWithoutItems(t *testing.T) {
	resp := httptest.NewRecorder()
	Place(&stubOrdersService{}, internalorders.ChannelStorefront, logger.Nop())(resp,
		httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[]}`)))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "items is required", decode(t, resp).Error.Message)
}

func TestDetail(t *testing.T) {
	id := uuid.New()
	resp := httptest.NewRecorder()
	Detail(&stubOrdersService{}, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", id.String()))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	svc := &stubOrdersService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	Detail(svc, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", id.String()))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	Detail(&stubOrdersService{}, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "ORD-1"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), decode(t, resp).Error.Code)
}

func TestUpdatePassesStatus(t *testing.T) {
	svc := &stubOrdersService{}
	req := withParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"shipped"}`)), "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	Update(svc, logger.Nop())(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.updated.Status)
	assert.Equal(t, "shipped", *svc.updated.Status)
}

func TestUpdateUnparseableIDIsStorageFailure(t *testing.T) {
	svc := &stubOrdersService{}
	req := withParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"shipped"}`)), "orderId", "not-an-id")
	resp := httptest.NewRecorder()
	Update(svc, logger.Nop())(resp, req)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeStorage), decode(t, resp).Error.Code)
	assert.Nil(t, svc.updated.Status, "service must not be called")
}

func TestEvents(t *testing.T) {
	resp := httptest.NewRecorder()
	Events(&stubOrdersService{}, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString()))
	require.Equal(t, http.StatusOK, resp.Code)
	var events []internalorders.EventDTO
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].Type)

	resp = httptest.NewRecorder()
	Events(&stubOrdersService{}, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "bogus"))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	Events(nil, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString()))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestListParsesQuery(t *testing.T) {
	svc := &stubOrdersService{}
	resp := httptest.NewRecorder()
	List(svc, logger.Nop())(resp, httptest.NewRequest(http.MethodGet, "/api/orders?userId=u1&status=pending&limit=10&cursor=abc", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, internalorders.ListInput{UserID: "u1", Status: "pending", Limit: 10, Cursor: "abc"}, svc.listed)

	resp = httptest.NewRecorder()
	List(svc, logger.Nop())(resp, httptest.NewRequest(http.MethodGet, "/api/orders?limit=1000", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTrack(t *testing.T) {
	placed := time.Now().Add(-2 * time.Hour)
	ref := "ORD-" + strconv.FormatInt(placed.UnixMilli(), 10)
	resp := httptest.NewRecorder()
	Track(&stubOrdersService{}, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "reference", ref))
	require.Equal(t, http.StatusOK, resp.Code)

	var tracking internalorders.Tracking
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &tracking))
	assert.Equal(t, enums.OrderStatusShipped, tracking.Status)

	resp = httptest.NewRecorder()
	Track(&stubOrdersService{}, logger.Nop())(resp, withParam(httptest.NewRequest(http.MethodGet, "/", nil), "reference", "bogus"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
