package models

import "time"

// Sequence counters and id prefixes
const (
	CounterOption     = "optionid"
	CounterIngredient = "ingredienttid"
	CounterCustomize  = "customizeid"
	CounterOrder      = "orderid"
	CounterProduct    = "productid"
	CounterFeedback   = "feedbackid"

	PrefixOption     = "OPT-"
	PrefixIngredient = "ING-"
	PrefixCustomize  = "CSM-"
	PrefixOrder      = "ORD-"
	PrefixProduct    = "OGC-"
	PrefixFeedback   = "FDB-"
)

// OptionKind is the component slot an option fills on a cake
type OptionKind string

const (
	OptionKindBase       OptionKind = "cake base"
	OptionKindFilling    OptionKind = "filling"
	OptionKindFrosting   OptionKind = "frosting"
	OptionKindDecoration OptionKind = "decorations"
)

// Cake sizes (inches) and shapes accepted by options and customizes
var (
	CakeSizes  = []string{"6", "8", "10", "12"}
	CakeShapes = []string{"round", "square", "heart"}
)

// Ingredient is a stocked raw material
type Ingredient struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	StockQuantity float64   `bson:"stock_quantity" json:"stock_quantity"`
	Unit          string    `bson:"unit" json:"unit"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// IngredientUse is a bill-of-materials line copied at composition time
type IngredientUse struct {
	ID       string  `bson:"_id" json:"id"`
	Name     string  `bson:"name" json:"name"`
	Quantity float64 `bson:"quantity" json:"quantity"`
	Unit     string  `bson:"unit" json:"unit"`
}

// Option is a reusable priced customization component
type Option struct {
	ID             string          `bson:"_id" json:"id"`
	Name           OptionKind      `bson:"name" json:"name"`
	Flavor         string          `bson:"flavor" json:"flavor"`
	Size           string          `bson:"size" json:"size"`
	Shape          string          `bson:"shape" json:"shape"`
	Price          float64         `bson:"price" json:"price"`
	Specifications string          `bson:"specifications" json:"specifications"`
	Ingredients    []IngredientUse `bson:"ingredients" json:"ingredients"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}

// OptionRef is the snapshot of an option embedded in a customize
type OptionRef struct {
	ID          string          `bson:"_id" json:"id"`
	Flavor      string          `bson:"flavor" json:"flavor"`
	Price       float64         `bson:"price" json:"price"`
	Ingredients []IngredientUse `bson:"ingredients" json:"ingredients"`
}

// Customize is a concrete custom cake configuration
type Customize struct {
	ID             string          `bson:"_id" json:"id"`
	Layers         int             `bson:"layers" json:"layers"`
	Size           string          `bson:"size" json:"size"`
	Shape          string          `bson:"shape" json:"shape"`
	Bases          []OptionRef     `bson:"bases" json:"bases"`
	Filling        OptionRef       `bson:"filling" json:"filling"`
	Frosting       OptionRef       `bson:"frosting" json:"frosting"`
	Decorations    []OptionRef     `bson:"decorations" json:"decorations"`
	Price          float64         `bson:"price" json:"price"`
	Specifications string          `bson:"specifications" json:"specifications"`
	Ingredients    []IngredientUse `bson:"ingredients" json:"ingredients"`
	Signature      string          `bson:"signature" json:"signature"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
}

// ProductCategory groups the tags a product is listed under
type ProductCategory struct {
	Flavor         []string `bson:"flavor" json:"flavor"`
	Occasion       []string `bson:"occasion" json:"occasion"`
	Specifications []string `bson:"specifications" json:"specifications"`
}

// Product is a ready-made catalog cake
type Product struct {
	ID          string          `bson:"_id" json:"id"`
	Name        string          `bson:"name" json:"name"`
	Weight      string          `bson:"weight" json:"weight"`
	Description string          `bson:"description" json:"description"`
	Price       float64         `bson:"price" json:"price"`
	Category    ProductCategory `bson:"category" json:"category"`
	Image       string          `bson:"image" json:"image"`
	Ingredients []IngredientUse `bson:"ingredients" json:"ingredients"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"updated_at"`
}

// DiscontinuedProduct is the archived form of a product
type DiscontinuedProduct struct {
	Product   `bson:",inline"`
	DeletedAt time.Time `bson:"deleted_at" json:"deleted_at"`
}

// OrderItem is one purchased line
type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Qty       int     `bson:"qty" json:"qty"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Image     string  `bson:"image" json:"image"`
}

// DeliveryAddress is where an order ships to
type DeliveryAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
}

// PaymentResult is what the payment provider reported
type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time" json:"update_time"`
	EmailAddress string `bson:"email_address" json:"email_address"`
}

// Order is an active customer order
type Order struct {
	ID              string          `bson:"_id" json:"id"`
	CustomerID      string          `bson:"customer_id" json:"customer_id,omitempty"`
	Items           []OrderItem     `bson:"items" json:"items"`
	DeliveryAddress DeliveryAddress `bson:"delivery_address" json:"delivery_address"`
	PaymentMethod   string          `bson:"payment_method" json:"payment_method"`
	PaymentResult   PaymentResult   `bson:"payment_result" json:"payment_result"`
	ItemsPrice      float64         `bson:"items_price" json:"items_price"`
	TaxPrice        float64         `bson:"tax_price" json:"tax_price"`
	DeliveryFee     float64         `bson:"delivery_fee" json:"delivery_fee"`
	TotalPrice      float64         `bson:"total_price" json:"total_price"`
	IsPaid          bool            `bson:"is_paid" json:"is_paid"`
	PaidAt          *time.Time      `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	DeliveredAt     *time.Time      `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updated_at"`
}

// CompletedOrder is a delivered order; it never transitions again
type CompletedOrder struct {
	Order `bson:",inline"`
}

// CakeGrade is the customer's judgement of cake height
type CakeGrade string

const (
	CakeGradeHigh CakeGrade = "High"
	CakeGradeLow  CakeGrade = "Low"
)

// Feedback is a customer review of a product
type Feedback struct {
	ID           string    `bson:"_id" json:"id"`
	ProductID    string    `bson:"product_id" json:"product_id"`
	ProductName  string    `bson:"product_name" json:"product_name"`
	CustomerName string    `bson:"customer_name" json:"customer_name"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	Address      string    `bson:"address" json:"address"`
	Rating       int       `bson:"rating" json:"rating"`
	RatingLabel  string    `bson:"rating_label" json:"rating_label"`
	Comment      string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CakeGrade    CakeGrade `bson:"cake_grade" json:"cake_grade"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// RatingSummary is the aggregate rating of one product
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	Count         int     `json:"count"`
}

// AvailableOptions partitions the options that fit a size and shape
type AvailableOptions struct {
	Bases       []Option `json:"cake_base"`
	Fillings    []Option `json:"filling"`
	Frostings   []Option `json:"frosting"`
	Decorations []Option `json:"decorations"`
}

// Collections
const (
	CollectionIngredients          = "ingredients"
	CollectionOptions              = "options"
	CollectionCustomizes           = "customizes"
	CollectionProducts             = "products"
	CollectionDiscontinuedProducts = "discontinued_products"
	CollectionOrders               = "orders"
	CollectionCompletedOrders      = "completed_orders"
	CollectionFeedback             = "feedback"
)
