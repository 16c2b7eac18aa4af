package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

type customer struct {
	ID        int64
	Name      string
	Email     string
	City      string
	Country   string
	CreatedAt time.Time
}

type product struct {
	ID        int64
	Name      string
	Category  string
	Price     float64
	Stock     int
	CreatedAt time.Time
}

type order struct {
	ID         int64
	CustomerID int64
	Date       time.Time
	Status     string
	Total      float64
	CreatedAt  time.Time
}

type orderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice float64
}

type review struct {
	ID         int64
	ProductID  int64
	CustomerID int64
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

type ticket struct {
	ID         int64
	CustomerID int64
	OrderID    *int64
	Subject    string
	Status     string
	Priority   string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

type dataset struct {
	customers []customer
	products  []product
	orders    []order
	items     []orderItem
	reviews   []review
	tickets   []ticket
}

type generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func newGenerator(seed int64) *generator {
	return &generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

var firstNames = []string{
	"Alice", "Ben", "Carla", "Daniel", "Elena", "Felix", "Grace", "Henrik",
	"Isabel", "Jonas", "Katie", "Liam", "Maria", "Noah", "Olivia", "Pedro",
	"Quinn", "Rosa", "Stefan", "Tara",
}

var lastNames = []string{
	"Anderson", "Brown", "Chen", "Davis", "Evans", "Fischer", "Garcia",
	"Hoffman", "Ivanov", "Jensen", "Keller", "Lopez", "Miller", "Nguyen",
	"O'Brien", "Patel", "Quinn", "Rossi", "Schmidt", "Tanaka",
}

var cities = []struct{ city, country string }{
	{"Portland", "USA"}, {"Austin", "USA"}, {"Denver", "USA"}, {"Chicago", "USA"},
	{"Berlin", "Germany"}, {"Hamburg", "Germany"}, {"London", "UK"},
	{"Manchester", "UK"}, {"Toronto", "Canada"}, {"Sydney", "Australia"},
	{"Tokyo", "Japan"}, {"Dublin", "Ireland"},
}

var productCatalog = []struct {
	name, category     string
	minPrice, maxPrice float64
}{
	{"Wireless Mouse", "Electronics", 15, 45},
	{"Mechanical Keyboard", "Electronics", 60, 160},
	{"USB-C Hub", "Electronics", 25, 70},
	{"Noise Cancelling Headphones", "Electronics", 90, 280},
	{"Smart Watch", "Electronics", 120, 320},
	{"Laptop Stand", "Office", 20, 60},
	{"Ergonomic Chair", "Office", 150, 420},
	{"Standing Desk", "Office", 280, 650},
	{"Desk Lamp", "Office", 18, 55},
	{"Notebook Set", "Office", 8, 22},
	{"Running Shoes", "Sports", 55, 150},
	{"Yoga Mat", "Sports", 18, 48},
	{"Water Bottle", "Sports", 10, 30},
	{"Fitness Tracker", "Sports", 40, 120},
	{"Espresso Machine", "Home", 180, 520},
	{"French Press", "Home", 20, 55},
	{"Air Purifier", "Home", 90, 260},
	{"Throw Blanket", "Home", 25, 65},
	{"Scented Candle", "Home", 12, 32},
	{"Cast Iron Skillet", "Home", 30, 85},
	{"Backpack", "Accessories", 35, 110},
	{"Sunglasses", "Accessories", 20, 150},
	{"Leather Wallet", "Accessories", 25, 80},
	{"Travel Mug", "Accessories", 14, 38},
	{"Phone Case", "Accessories", 10, 35},
}

var ticketSubjects = []string{
	"Where is my order?",
	"Item arrived damaged",
	"Request a refund",
	"Wrong item delivered",
	"Question about warranty",
	"Cannot track my shipment",
	"Billing discrepancy",
	"Need a return label",
}

var reviewComments = map[int][]string{
	5: {"Absolutely love it, would buy again.", "Exceeded my expectations.", "Great quality for the price."},
	4: {"Works well overall.", "Good value, happy with the purchase.", "Solid product, fast shipping."},
	3: {"Does the job, nothing special.", "Average quality.", "Okay for the price."},
	2: {"Disappointed with the build quality.", "Not quite as described."},
	1: {"Stopped working after a week.", "Would not recommend."},
}

// build produces the full demo dataset. The first two customers are always
// John Doe and Jane Smith so the example questions return data out of the box,
// and John Doe always owns the first two orders plus a review and an open
// ticket.
func (g *generator) build(opts Options) dataset {
	now := g.now()
	var data dataset

	data.customers = append(data.customers,
		customer{ID: 1, Name: "John Doe", Email: "john.doe@example.com", City: "Portland", Country: "USA", CreatedAt: now.AddDate(0, 0, -400)},
		customer{ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com", City: "Austin", Country: "USA", CreatedAt: now.AddDate(0, 0, -380)},
	)
	for id := int64(3); id <= int64(opts.Customers); id++ {
		first := pickOne(g.rnd, firstNames)
		last := pickOne(g.rnd, lastNames)
		place := cities[g.rnd.Intn(len(cities))]
		data.customers = append(data.customers, customer{
			ID:        id,
			Name:      first + " " + last,
			Email:     fmt.Sprintf("%s.%s.%d@example.com", emailPart(first), emailPart(last), id),
			City:      place.city,
			Country:   place.country,
			CreatedAt: now.AddDate(0, 0, -g.rnd.Intn(365)),
		})
	}

	productCount := opts.Products
	if productCount > len(productCatalog) {
		productCount = len(productCatalog)
	}
	for i := 0; i < productCount; i++ {
		entry := productCatalog[i]
		data.products = append(data.products, product{
			ID:        int64(i + 1),
			Name:      entry.name,
			Category:  entry.category,
			Price:     round2(entry.minPrice + g.rnd.Float64()*(entry.maxPrice-entry.minPrice)),
			Stock:     g.rnd.Intn(200),
			CreatedAt: now.AddDate(0, 0, -g.rnd.Intn(365)),
		})
	}

	itemID := int64(0)
	for i := 0; i < opts.Orders; i++ {
		orderID := int64(i + 1)
		customerID := data.customers[g.rnd.Intn(len(data.customers))].ID
		switch i {
		case 0, 1:
			customerID = 1
		case 2:
			customerID = 2
		}
		orderDate := now.AddDate(0, 0, -g.rnd.Intn(180))

		itemCount := 1 + g.rnd.Intn(4)
		total := 0.0
		for j := 0; j < itemCount; j++ {
			itemID++
			item := orderItem{
				ID:        itemID,
				OrderID:   orderID,
				ProductID: data.products[g.rnd.Intn(len(data.products))].ID,
				Quantity:  1 + g.rnd.Intn(3),
			}
			item.UnitPrice = g.productPrice(data.products, item.ProductID)
			total += float64(item.Quantity) * item.UnitPrice
			data.items = append(data.items, item)
		}

		data.orders = append(data.orders, order{
			ID:         orderID,
			CustomerID: customerID,
			Date:       orderDate,
			Status:     g.pickOrderStatus(),
			Total:      round2(total),
			CreatedAt:  orderDate,
		})
	}

	for i := 0; i < opts.Reviews; i++ {
		customerID := data.customers[g.rnd.Intn(len(data.customers))].ID
		if i == 0 {
			customerID = 1
		}
		rating := g.pickRating()
		data.reviews = append(data.reviews, review{
			ID:         int64(i + 1),
			ProductID:  data.products[g.rnd.Intn(len(data.products))].ID,
			CustomerID: customerID,
			Rating:     rating,
			Comment:    pickOne(g.rnd, reviewComments[rating]),
			CreatedAt:  now.AddDate(0, 0, -g.rnd.Intn(180)),
		})
	}

	for i := 0; i < opts.Tickets; i++ {
		customerID := data.customers[g.rnd.Intn(len(data.customers))].ID
		status := g.pickTicketStatus()
		if i == 0 {
			customerID = 1
			status = "open"
		}
		createdAt := now.AddDate(0, 0, -g.rnd.Intn(90))

		item := ticket{
			ID:         int64(i + 1),
			CustomerID: customerID,
			Subject:    pickOne(g.rnd, ticketSubjects),
			Status:     status,
			Priority:   g.pickTicketPriority(),
			CreatedAt:  createdAt,
		}
		if orderID := g.orderFor(data.orders, customerID); orderID != 0 && g.rnd.Intn(2) == 0 {
			item.OrderID = &orderID
		}
		if status == "resolved" || status == "closed" {
			resolvedAt := createdAt.Add(time.Duration(1+g.rnd.Intn(72)) * time.Hour)
			item.ResolvedAt = &resolvedAt
		}
		data.tickets = append(data.tickets, item)
	}

	return data
}

func (g *generator) productPrice(products []product, productID int64) float64 {
	for _, item := range products {
		if item.ID == productID {
			return item.Price
		}
	}
	return 0
}

func (g *generator) orderFor(orders []order, customerID int64) int64 {
	for _, item := range orders {
		if item.CustomerID == customerID {
			return item.ID
		}
	}
	return 0
}

func (g *generator) pickOrderStatus() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 45:
		return "delivered"
	case p < 65:
		return "shipped"
	case p < 77:
		return "processing"
	case p < 90:
		return "pending"
	default:
		return "cancelled"
	}
}

func (g *generator) pickRating() int {
	p := g.rnd.Intn(100)
	switch {
	case p < 35:
		return 5
	case p < 65:
		return 4
	case p < 82:
		return 3
	case p < 92:
		return 2
	default:
		return 1
	}
}

func (g *generator) pickTicketStatus() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 35:
		return "open"
	case p < 60:
		return "in_progress"
	case p < 85:
		return "resolved"
	default:
		return "closed"
	}
}

func (g *generator) pickTicketPriority() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 40:
		return "low"
	case p < 80:
		return "medium"
	default:
		return "high"
	}
}

func emailPart(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "'", "")
	return strings.ReplaceAll(value, " ", "")
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
