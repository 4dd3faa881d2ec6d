package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of a gifting order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusFollowed        OrderStatus = "FOLLOWED"
	OrderStatusReadyForGifting OrderStatus = "READY_FOR_GIFTING"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusFailed          OrderStatus = "FAILED"
	OrderStatusRefunded        OrderStatus = "REFUNDED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusFollowed,
	OrderStatusReadyForGifting,
	OrderStatusCompleted,
	OrderStatusFailed,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ReleasesBalance reports whether entering this status returns a deducted price.
func (s OrderStatus) ReleasesBalance() bool {
	return s == OrderStatusFailed || s == OrderStatusRefunded
}

// ForcesReady reports whether entering this status marks the order ready for gifting.
func (s OrderStatus) ForcesReady() bool {
	return s == OrderStatusReadyForGifting || s == OrderStatusCompleted
}

// Label renders the status for humans, e.g. "Ready For Gifting".
func (s OrderStatus) Label() string {
	words := strings.Split(strings.ToLower(string(s)), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}
