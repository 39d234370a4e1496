package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusAccepted, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusInProgress, false},
		{OrderStatusAccepted, OrderStatusInProgress, true},
		{OrderStatusAccepted, OrderStatusCancelled, false},
		{OrderStatusInProgress, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusDelivered, OrderStatusDisputed, true},
		{OrderStatusCompleted, OrderStatusDisputed, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusDisputed, OrderStatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNewOrderStatus(t *testing.T) {
	s, err := NewOrderStatus("in progress")
	assert.NoError(t, err)
	assert.Equal(t, OrderStatusInProgress, s)

	_, err = NewOrderStatus("in_progress")
	assert.Error(t, err)
}

func TestActionsFor_MatchesRoleTable(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		status     OrderStatus
		isReviewed bool
		want       []Action
	}{
		{"freelancer pending", RoleFreelancer, OrderStatusPending, false, []Action{ActionAccept, ActionDecline}},
		{"client pending", RoleClient, OrderStatusPending, false, []Action{ActionCancel}},
		{"freelancer accepted", RoleFreelancer, OrderStatusAccepted, false, []Action{ActionStart}},
		{"client accepted", RoleClient, OrderStatusAccepted, false, []Action{}},
		{"freelancer in progress", RoleFreelancer, OrderStatusInProgress, false, []Action{ActionDeliver}},
		{"freelancer delivered", RoleFreelancer, OrderStatusDelivered, false, []Action{}},
		{"client delivered", RoleClient, OrderStatusDelivered, false, []Action{ActionComplete, ActionDispute, ActionReview}},
		{"client delivered reviewed", RoleClient, OrderStatusDelivered, true, []Action{ActionComplete, ActionDispute}},
		{"client completed", RoleClient, OrderStatusCompleted, false, []Action{ActionReview}},
		{"client completed reviewed", RoleClient, OrderStatusCompleted, true, []Action{}},
		{"freelancer completed", RoleFreelancer, OrderStatusCompleted, false, []Action{}},
		{"client cancelled", RoleClient, OrderStatusCancelled, false, []Action{}},
		{"client disputed", RoleClient, OrderStatusDisputed, false, []Action{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActionsFor(tt.role, tt.status, tt.isReviewed))
		})
	}
}

func TestTargetOf(t *testing.T) {
	to, ok := TargetOf(RoleFreelancer, OrderStatusPending, ActionDecline)
	assert.True(t, ok)
	assert.Equal(t, OrderStatusCancelled, to)

	_, ok = TargetOf(RoleClient, OrderStatusPending, ActionAccept)
	assert.False(t, ok)

	_, ok = TargetOf(RoleClient, OrderStatusDelivered, ActionReview)
	assert.False(t, ok)
}

func TestTransitionsFor_AgreesWithCanTransitionTo(t *testing.T) {
	statuses := []OrderStatus{
		OrderStatusPending, OrderStatusAccepted, OrderStatusInProgress, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed,
	}
	for _, role := range []Role{RoleClient, RoleFreelancer} {
		for _, s := range statuses {
			for _, tr := range TransitionsFor(role, s) {
				assert.True(t, s.CanTransitionTo(tr.To), "%s: %s -> %s", role, s, tr.To)
			}
		}
	}
}
