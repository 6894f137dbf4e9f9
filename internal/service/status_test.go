package service

import (
	"testing"

	"payment-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		name              string
		transactionStatus string
		fraudStatus       string
		want              string
	}{
		{"capture accepted", "capture", "accept", models.OrderStatusSuccess},
		{"capture challenged", "capture", "challenge", models.OrderStatusChallenge},
		{"capture no fraud status", "capture", "", models.OrderStatusChallenge},
		{"settlement accepted", "settlement", "accept", models.OrderStatusSuccess},
		{"settlement challenged", "settlement", "challenge", models.OrderStatusSuccess},
		{"settlement no fraud status", "settlement", "", models.OrderStatusSuccess},
		{"pending", "pending", "accept", models.OrderStatusPending},
		{"pending any fraud", "pending", "deny", models.OrderStatusPending},
		{"deny", "deny", "accept", models.OrderStatusFailed},
		{"cancel", "cancel", "", models.OrderStatusFailed},
		{"expire", "expire", "", models.OrderStatusFailed},
		{"failure", "failure", "", models.OrderStatusFailed},
		{"authenticate falls to default", "authenticate", "", models.OrderStatusChallenge},
		{"refund falls to default", "refund", "accept", models.OrderStatusChallenge},
		{"empty input falls to default", "", "", models.OrderStatusChallenge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveOrderStatus(tt.transactionStatus, tt.fraudStatus)
			assert.Equal(t, tt.want, got)

			// pure function: applying twice yields the same result
			assert.Equal(t, got, DeriveOrderStatus(tt.transactionStatus, tt.fraudStatus))
		})
	}
}
