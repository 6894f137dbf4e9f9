package service

import "payment-service/internal/models"

// DeriveOrderStatus maps a gateway transaction status and fraud status to
// the internal order status. First match wins; every unmatched combination
// falls to CHALLENGE.
func DeriveOrderStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			return models.OrderStatusSuccess
		}
	case "settlement":
		return models.OrderStatusSuccess
	case "pending":
		return models.OrderStatusPending
	case "deny", "cancel", "expire", "failure":
		return models.OrderStatusFailed
	}
	return models.OrderStatusChallenge
}
