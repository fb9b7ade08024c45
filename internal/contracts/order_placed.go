package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const (
	OrderPlacedEventName           = "OrderPlaced"
	OrderPlacedEventVersion        = 1
	OrderPlacedEnvelopedSchemaPath = "contracts/events/storefront/OrderPlaced.v1.enveloped.schema.json"
	StorefrontProducer             = "storefront"
)

type EventEnvelope struct {
	EventName     string             `json:"eventName"`
	EventVersion  int                `json:"eventVersion"`
	EventID       string             `json:"eventId"`
	CorrelationID string             `json:"correlationId,omitempty"`
	CausationID   string             `json:"causationId,omitempty"`
	Producer      string             `json:"producer"`
	PartitionKey  string             `json:"partitionKey"`
	Sequence      int64              `json:"sequence"`
	OccurredAt    time.Time          `json:"occurredAt"`
	Schema        string             `json:"schema"`
	Payload       OrderPlacedPayload `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID      string            `json:"orderId"`
	UserID       string            `json:"userId"`
	CustomerName string            `json:"customerName"`
	Items        []OrderPlacedItem `json:"items"`
	TotalPrice   decimal.Decimal   `json:"totalPrice"`
	Status       string            `json:"status"`
	PlacedAt     time.Time         `json:"placedAt"`
}

type OrderPlacedItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type EnvelopeOptions struct {
	Sequence      int64
	Producer      string
	SchemaPath    string
	CorrelationID string
	CausationID   string
	EventID       string
	OccurredAt    time.Time
}

// BuildOrderPlacedEvent wraps o in a v1 envelope partitioned by user.
func BuildOrderPlacedEvent(o *order.Order, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = OrderPlacedEnvelopedSchemaPath
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontProducer
	}

	payload := OrderPlacedPayload{
		OrderID:      o.ID,
		UserID:       o.UserID,
		CustomerName: o.CustomerName,
		Items:        make([]OrderPlacedItem, 0, len(o.Items)),
		TotalPrice:   o.TotalPrice,
		Status:       string(o.Status),
		PlacedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	return EventEnvelope{
		EventName:     OrderPlacedEventName,
		EventVersion:  OrderPlacedEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Producer:      producer,
		PartitionKey:  o.UserID,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Schema:        schemaPath,
		Payload:       payload,
	}
}
