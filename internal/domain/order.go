package domain

import "errors"

// ErrOrderAPI is returned when the Order API rejects or fails a request.
var ErrOrderAPI = errors.New("order api error")

// OrderLine is one line of an order submitted at checkout.
type OrderLine struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"nombre"`
	Price    Money     `json:"precio"`
	Quantity int       `json:"cantidad"`
}

// OrderLinesFromCart assembles the checkout payload from the cart lines.
func OrderLinesFromCart(lines []CartLine) []OrderLine {
	orderLines := make([]OrderLine, 0, len(lines))

	for _, line := range lines {
		orderLines = append(orderLines, OrderLine{
			ID:       line.ID,
			Name:     line.Name,
			Price:    line.UnitPrice,
			Quantity: line.Quantity,
		})
	}

	return orderLines
}

// Order is an order as reported by the Order API.
type Order struct {
	ID     int64       `json:"id"`
	Date   string      `json:"fecha,omitempty"`
	Status string      `json:"estado,omitempty"`
	Total  Money       `json:"total"`
	Items  []OrderLine `json:"items,omitempty"`
}
