package submission

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-checkout/internal/address"
	"marketplace-checkout/internal/checkout"
	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/events"
	"marketplace-checkout/internal/zone"
)

type stubCarts struct {
	snap *domain.CartSnapshot
	err  error
}

func (s stubCarts) GetSnapshot(context.Context, string) (*domain.CartSnapshot, error) {
	return s.snap, s.err
}

type stubOrders struct {
	created []domain.Order
	events  []events.Event
	err     error
}

func (s *stubOrders) Create(_ context.Context, o domain.Order, event func(domain.Order) (events.Event, error)) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	o.ID = "order-1"
	o.CreatedAt = time.Now()
	e, err := event(o)
	if err != nil {
		return nil, err
	}
	s.created = append(s.created, o)
	s.events = append(s.events, e)
	return &o, nil
}

type stubRef struct{ err error }

func (s stubRef) Load(context.Context) (checkout.ReferenceData, error) {
	if s.err != nil {
		return checkout.ReferenceData{}, s.err
	}
	return checkout.ReferenceData{
		Countries:         []domain.Country{{ID: "MW", Name: "Malawi"}, {ID: "ZA", Name: "South Africa"}},
		PaymentGateways:   []domain.PaymentGateway{{ID: "airtel-money"}, {ID: "card"}},
		DomesticCountryID: "MW",
		Registry:          zone.Default(),
	}, nil
}

func cartWithItems() *domain.CartSnapshot {
	return &domain.CartSnapshot{
		ID:       "cart-1",
		Currency: "MWK",
		Items:    []domain.CartItem{{ID: "l1", Name: "Chitenje", UnitPrice: 10000, Quantity: 2}},
		Subtotal: 20000,
		Shipping: 2500,
		Total:    22500,
	}
}

func validPayload(t *testing.T) checkout.Payload {
	t.Helper()
	reg := zone.Default()
	lilongwe, ok := reg.FindByID("lilongwe")
	require.True(t, ok)

	billing := address.New("MW", "MW")
	billing.FirstName = "Thoko"
	billing.LastName = "Banda"
	billing.Phone = "+265 991 234 567"
	billing.Email = "thoko@example.com"
	require.NoError(t, billing.SetCity(lilongwe))

	shipping := address.NewShipping("MW")
	require.NoError(t, shipping.Recipient.SetCity(lilongwe))
	shipping.DeliveryNote = "Opposite the Area 47 market"

	return checkout.Payload{
		CartID:           "cart-1",
		Billing:          billing,
		Shipping:         shipping,
		PaymentGatewayID: "airtel-money",
		Notes:            " ring twice ",
	}
}

func TestSubmitPlacesOrderWithEvent(t *testing.T) {
	orders := &stubOrders{}
	svc := New(stubCarts{snap: cartWithItems()}, orders, stubRef{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	p := validPayload(t)
	p.CustomerID = "cust-9"
	p.CreateAccount = true
	receipt, err := svc.Submit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, checkout.Receipt{OrderID: "order-1", Status: StatusPending}, receipt)

	require.Len(t, orders.created, 1)
	o := orders.created[0]
	assert.Equal(t, int64(22500), o.TotalCents)
	assert.Equal(t, "MWK", o.Currency)
	assert.Equal(t, "ring twice", o.Notes)
	require.NotNil(t, o.CustomerID)
	assert.Equal(t, "cust-9", *o.CustomerID)

	var billing map[string]any
	require.NoError(t, json.Unmarshal(o.Billing, &billing))
	assert.Equal(t, "lilongwe", billing["city_id"])
	assert.Equal(t, "structured", billing["mode"])

	require.Len(t, orders.events, 1)
	e := orders.events[0]
	assert.Equal(t, events.TypeOrderSubmitted, e.Type)
	assert.Equal(t, "order-1", e.AggregateID)
	var payload events.OrderSubmitted
	require.NoError(t, json.Unmarshal(e.Payload, &payload))
	assert.Equal(t, "lilongwe", payload.ShippingCityID)
	assert.True(t, payload.CreateAccount)
	assert.Equal(t, int64(22500), payload.Total)
}

func TestSubmitRevalidates(t *testing.T) {
	orders := &stubOrders{}
	svc := New(stubCarts{snap: cartWithItems()}, orders, stubRef{})

	p := validPayload(t)
	p.PaymentGatewayID = "bitcoin"
	p.Shipping.DeliveryNote = ""
	p.Billing.Email = "not-an-email"

	_, err := svc.Submit(context.Background(), p)
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"billing.email", "payment_gateway_id", "shipping.delivery_note"}, verr.Fields.Fields())
	assert.Empty(t, orders.created)
}

func TestSubmitRejectsUnknownCountry(t *testing.T) {
	svc := New(stubCarts{snap: cartWithItems()}, &stubOrders{}, stubRef{})

	p := validPayload(t)
	p.Billing.SetCountry("FR", "MW")
	require.NoError(t, p.Billing.Set("address_line_1", "1 Rue de Rivoli"))
	require.NoError(t, p.Billing.Set("city", "Paris"))

	_, err := svc.Submit(context.Background(), p)
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgSelectCountry, verr.Fields["billing.country_id"])
}

func TestSubmitCartChecks(t *testing.T) {
	cases := []struct {
		name  string
		carts stubCarts
		msg   string
	}{
		{"missing", stubCarts{err: domain.ErrNotFound}, msgCartMissing},
		{"empty", stubCarts{snap: &domain.CartSnapshot{ID: "cart-1", Currency: "MWK"}}, msgCartEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(tc.carts, &stubOrders{}, stubRef{})
			_, err := svc.Submit(context.Background(), validPayload(t))
			var verr *checkout.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.msg, verr.Fields["cart"])
		})
	}
}

func TestSubmitDuplicateOrder(t *testing.T) {
	svc := New(stubCarts{snap: cartWithItems()}, &stubOrders{err: domain.ErrAlreadyExists}, stubRef{})

	_, err := svc.Submit(context.Background(), validPayload(t))
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgAlreadyOrdered, verr.Message)
}

func TestSubmitTransportFailures(t *testing.T) {
	boom := errors.New("connection reset")

	svc := New(stubCarts{snap: cartWithItems()}, &stubOrders{err: boom}, stubRef{})
	_, err := svc.Submit(context.Background(), validPayload(t))
	require.ErrorIs(t, err, boom)
	var verr *checkout.ValidationError
	assert.False(t, errors.As(err, &verr))

	svc = New(stubCarts{snap: cartWithItems()}, &stubOrders{}, stubRef{err: boom})
	_, err = svc.Submit(context.Background(), validPayload(t))
	require.ErrorIs(t, err, boom)

	svc = New(stubCarts{err: boom}, &stubOrders{}, stubRef{})
	_, err = svc.Submit(context.Background(), validPayload(t))
	require.ErrorIs(t, err, boom)
}

func TestSessionSubmitThroughService(t *testing.T) {
	ref, err := stubRef{}.Load(context.Background())
	require.NoError(t, err)
	svc := New(stubCarts{err: domain.ErrNotFound}, &stubOrders{}, stubRef{})

	p := validPayload(t)
	sess := checkout.New(ref, *cartWithItems(), svc)
	require.NoError(t, sess.SetBillingField("first_name", p.Billing.FirstName))
	require.NoError(t, sess.SetBillingField("last_name", p.Billing.LastName))
	require.NoError(t, sess.SetBillingField("phone", p.Billing.Phone))
	require.NoError(t, sess.SetBillingField("email", p.Billing.Email))
	require.NoError(t, sess.SetBillingCity("lilongwe"))
	sel, err := sess.BeginCitySelection("lilongwe")
	require.NoError(t, err)
	sel.SetNote("Next to the filling station")
	require.NoError(t, sess.ConfirmCitySelection(sel))

	_, err = sess.Submit(context.Background())
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, checkout.StateFailed, sess.State())
	assert.Contains(t, sess.View().GeneralErrors, msgCartMissing)
}
