package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record line formats, one entity per line:
//
//	product: id,name,description,price,stock,category
//	order:   id,customerId,date,status,subtotal,tax,total,items
//	user:    id,name,email,password,phone,roleField,ROLE
//
// Order items are a `;`-separated list of `productId:name:qty:price`.
// Field values must not contain the delimiters; the storefront never
// produces such values and malformed lines are skipped at load time.

// TimeLayout is the timestamp format used in order records.
const TimeLayout = "2006-01-02 15:04:05"

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// EncodeProduct renders a product as a record line.
func EncodeProduct(p Product) string {
	return strings.Join([]string{
		p.ID,
		p.Name,
		p.Description,
		money(p.Price),
		strconv.Itoa(p.Stock),
		p.Category,
	}, ",")
}

// ParseProduct parses a product record line.
func ParseProduct(line string) (Product, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return Product{}, fmt.Errorf("product record has %d fields, want 6: %w", len(parts), ErrInvalidArgument)
	}

	price, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Product{}, fmt.Errorf("product price %q: %w", parts[3], ErrInvalidArgument)
	}
	stock, err := strconv.Atoi(parts[4])
	if err != nil {
		return Product{}, fmt.Errorf("product stock %q: %w", parts[4], ErrInvalidArgument)
	}

	return Product{
		ID:          parts[0],
		Name:        parts[1],
		Description: parts[2],
		Price:       price,
		Stock:       stock,
		Category:    parts[5],
	}, nil
}

// EncodeOrder renders an order as a record line.
func EncodeOrder(o Order) string {
	items := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, strings.Join([]string{
			it.ProductID,
			it.ProductName,
			strconv.Itoa(it.Quantity),
			money(it.UnitPrice),
		}, ":"))
	}

	return strings.Join([]string{
		o.ID,
		o.CustomerID,
		o.PlacedAt.Format(TimeLayout),
		string(o.Status),
		money(o.Subtotal),
		money(o.Tax),
		money(o.Total),
		strings.Join(items, ";"),
	}, ",")
}

// ParseOrder parses an order record line. Totals are recomputed from the
// parsed items rather than trusted from the stored figures.
func ParseOrder(line string) (Order, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 8 {
		return Order{}, fmt.Errorf("order record has %d fields, want 8: %w", len(parts), ErrInvalidArgument)
	}

	placedAt, err := time.Parse(TimeLayout, parts[2])
	if err != nil {
		return Order{}, fmt.Errorf("order date %q: %w", parts[2], ErrInvalidArgument)
	}

	status := OrderStatus(parts[3])
	if !status.Valid() {
		return Order{}, fmt.Errorf("order status %q: %w", parts[3], ErrInvalidArgument)
	}

	o := Order{
		ID:         parts[0],
		CustomerID: parts[1],
		PlacedAt:   placedAt,
		Status:     status,
	}

	if parts[7] != "" {
		for _, raw := range strings.Split(parts[7], ";") {
			item, err := parseOrderItem(raw)
			if err != nil {
				return Order{}, err
			}
			o.Items = append(o.Items, item)
		}
	}

	o.Recalculate()
	return o, nil
}

func parseOrderItem(raw string) (OrderItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 4 {
		return OrderItem{}, fmt.Errorf("order item %q: %w", raw, ErrInvalidArgument)
	}
	qty, err := strconv.Atoi(parts[2])
	if err != nil {
		return OrderItem{}, fmt.Errorf("order item quantity %q: %w", parts[2], ErrInvalidArgument)
	}
	price, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return OrderItem{}, fmt.Errorf("order item price %q: %w", parts[3], ErrInvalidArgument)
	}
	return OrderItem{
		ProductID:   parts[0],
		ProductName: parts[1],
		Quantity:    qty,
		UnitPrice:   price,
	}, nil
}

// EncodeUser renders a user as a record line. The sixth field is the
// role-specific one: address for customers, admin level for admins.
func EncodeUser(u User) string {
	roleField := u.Address
	if u.Role == RoleAdmin {
		roleField = u.AdminLevel
	}
	return strings.Join([]string{
		u.ID,
		u.Name,
		u.Email,
		u.Password,
		u.Phone,
		roleField,
		string(u.Role),
	}, ",")
}

// ParseUser parses a user record line.
func ParseUser(line string) (User, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 {
		return User{}, fmt.Errorf("user record has %d fields, want 7: %w", len(parts), ErrInvalidArgument)
	}

	u := User{
		ID:       parts[0],
		Name:     parts[1],
		Email:    parts[2],
		Password: parts[3],
		Phone:    parts[4],
		Role:     Role(parts[6]),
	}

	switch u.Role {
	case RoleCustomer:
		u.Address = parts[5]
	case RoleAdmin:
		u.AdminLevel = parts[5]
	default:
		return User{}, fmt.Errorf("user role %q: %w", parts[6], ErrInvalidArgument)
	}

	return u, nil
}
