package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicket_StatusChecks(t *testing.T) {
	tests := []struct {
		status     TicketStatus
		payable    bool
		disputable bool
	}{
		{TicketStatusUnpaid, true, true},
		{TicketStatusOverdue, true, true},
		{TicketStatusPaid, false, false},
		{TicketStatusDisputed, false, false},
		{TicketStatusDismissed, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			ticket := Ticket{Status: tt.status}
			assert.Equal(t, tt.payable, ticket.IsPayable())
			assert.Equal(t, tt.disputable, ticket.IsDisputable())
		})
	}
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", User{FirstName: "Ada"}.FullName())
	assert.Equal(t, "Lovelace", User{LastName: "Lovelace"}.FullName())
}
