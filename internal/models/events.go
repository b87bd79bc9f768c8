package models

import "time"

// Event types
const (
	EventTypeOptionCreated       = "OPTION_CREATED"
	EventTypeOptionUpdated       = "OPTION_UPDATED"
	EventTypeOptionDeleted       = "OPTION_DELETED"
	EventTypeStockAdjusted       = "STOCK_ADJUSTED"
	EventTypeStockLow            = "STOCK_LOW"
	EventTypeCustomizeCreated    = "CUSTOMIZE_CREATED"
	EventTypeProductCreated      = "PRODUCT_CREATED"
	EventTypeProductDiscontinued = "PRODUCT_DISCONTINUED"
	EventTypeProductRestored     = "PRODUCT_RESTORED"
	EventTypeOrderCreated        = "ORDER_CREATED"
	EventTypeOrderCompleted      = "ORDER_COMPLETED"
	EventTypeFeedbackSubmitted   = "FEEDBACK_SUBMITTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OptionEvent published when an option is created, updated or deleted
type OptionEvent struct {
	BaseEvent
	OptionID string     `json:"option_id"`
	Kind     OptionKind `json:"kind"`
	Flavor   string     `json:"flavor"`
	Size     string     `json:"size"`
	Shape    string     `json:"shape"`
	Price    float64    `json:"price"`
}

// StockEvent published after a stock adjustment
type StockEvent struct {
	BaseEvent
	IngredientID  string  `json:"ingredient_id"`
	Name          string  `json:"name"`
	Delta         float64 `json:"delta"`
	StockQuantity float64 `json:"stock_quantity"`
	Unit          string  `json:"unit"`
}

// CustomizeCreatedEvent published when a custom cake is composed
type CustomizeCreatedEvent struct {
	BaseEvent
	CustomizeID string  `json:"customize_id"`
	Size        string  `json:"size"`
	Shape       string  `json:"shape"`
	Layers      int     `json:"layers"`
	Price       float64 `json:"price"`
}

// ProductEvent published on product lifecycle transitions
type ProductEvent struct {
	BaseEvent
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// OrderEvent published on order lifecycle transitions
type OrderEvent struct {
	BaseEvent
	OrderID    string  `json:"order_id"`
	ItemCount  int     `json:"item_count"`
	TotalPrice float64 `json:"total_price"`
}

// FeedbackSubmittedEvent carries what the thank-you notification needs
type FeedbackSubmittedEvent struct {
	BaseEvent
	FeedbackID   string    `json:"feedback_id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email,omitempty"`
	Address      string    `json:"address"`
	Rating       int       `json:"rating"`
	RatingLabel  string    `json:"rating_label"`
	Comment      string    `json:"comment,omitempty"`
	CakeGrade    CakeGrade `json:"cake_grade"`
}
