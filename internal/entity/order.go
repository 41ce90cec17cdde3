package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Any status may follow any other one.
const (
	StatusReceived  = "Received"
	StatusPreparing = "Preparing"
	StatusReady     = "Ready"
	StatusPickedUp  = "PickedUp"
	StatusCancelled = "Cancelled"
)

var orderStatuses = map[string]bool{
	StatusReceived:  true,
	StatusPreparing: true,
	StatusReady:     true,
	StatusPickedUp:  true,
	StatusCancelled: true,
}

// ValidStatus reports whether status is one of the known order labels.
func ValidStatus(status string) bool {
	return orderStatuses[status]
}

type Order struct {
	ID             int             `json:"id"`
	UserID         int             `json:"user_id"`
	User           *UserSummary    `json:"user,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	PickupLocation string          `json:"pickup_location"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	PickupTime     time.Time       `json:"pickup_time"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	Items          []LineItem      `json:"items"`
}

// LineItem keeps the unit price the product had when the order was placed.
type LineItem struct {
	ID        int             `json:"id"`
	OrderID   int             `json:"order_id"`
	ProductID int             `json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity x captured unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ItemsTotal sums the subtotals of all line items, without the delivery fee.
func (o *Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

/*
Mysql Table

CREATE TABLE orders (
	id INT AUTO_INCREMENT PRIMARY KEY,
	user_id INT NOT NULL REFERENCES users(id),
	created_at DATETIME(6) NOT NULL,
	pickup_location VARCHAR(50) NOT NULL,
	delivery_fee DECIMAL(10,2) NOT NULL,
	pickup_time DATETIME NOT NULL,
	total DECIMAL(10,2) NOT NULL,
	status VARCHAR(20) NOT NULL
);

CREATE TABLE order_items (
	id INT AUTO_INCREMENT PRIMARY KEY,
	order_id INT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id INT NOT NULL REFERENCES products(id),
	quantity INT NOT NULL,
	unit_price DECIMAL(10,2) NOT NULL
);
*/
