package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
)

func TestOrder_ActionsFor_OwnerAndViewer(t *testing.T) {
	o := &Order{ID: "o1", Status: valueobject.OrderStatusPending, ClientID: "c1", FreelancerID: "f1"}

	assert.Equal(t, []valueobject.Action{valueobject.ActionAccept, valueobject.ActionDecline},
		o.ActionsFor("f1", valueobject.RoleFreelancer))
	assert.Equal(t, []valueobject.Action{valueobject.ActionCancel},
		o.ActionsFor("c1", valueobject.RoleClient))

	// Чужой пользователь и неверная роль получают режим просмотра.
	assert.Empty(t, o.ActionsFor("stranger", valueobject.RoleFreelancer))
	assert.Empty(t, o.ActionsFor("c1", valueobject.RoleFreelancer))
	assert.Empty(t, o.ActionsFor("", valueobject.RoleClient))
}

func TestOrder_CanReview(t *testing.T) {
	o := &Order{Status: valueobject.OrderStatusCompleted, ClientID: "c1", FreelancerID: "f1"}
	assert.True(t, o.CanReview("c1", valueobject.RoleClient))
	assert.False(t, o.CanReview("f1", valueobject.RoleFreelancer))

	o.IsReviewed = true
	assert.False(t, o.CanReview("c1", valueobject.RoleClient))
}

func TestOrder_CloneDetachesSummaries(t *testing.T) {
	o := &Order{ID: "o1", Client: &UserSummary{ID: "c1", Username: "anna"}}
	c := o.Clone()
	c.Client.Username = "changed"

	assert.Equal(t, "anna", o.Client.Username)
}

func TestMessage_BelongsTo(t *testing.T) {
	m := Message{Sender: "u2", Receiver: "u1"}
	assert.True(t, m.BelongsTo("u1", "u2"))
	assert.True(t, m.BelongsTo("u2", "u1"))
	assert.False(t, m.BelongsTo("u1", "u3"))

	other, ok := m.Counterpart("u1")
	assert.True(t, ok)
	assert.Equal(t, "u2", other)

	_, ok = m.Counterpart("u9")
	assert.False(t, ok)
}
