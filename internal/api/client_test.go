package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-client/internal/domain/repository"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-client/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-client/internal/session"
)

// fakeAPI — минимальный сервер маркетплейса на gin.
type fakeAPI struct {
	mu          sync.Mutex
	statusCalls []string
	reviews     []reviewRequest
	authHeaders []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fakeAPI{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, c.GetHeader("Authorization"))
		f.mu.Unlock()
		c.Next()
	})

	api := r.Group("/api")
	api.GET("/orders/:role/:actor", func(c *gin.Context) {
		if c.Param("actor") != "f1" {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": []any{}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []gin.H{
			{
				"_id":          "o1",
				"status":       "pending",
				"price":        120.5,
				"clientId":     gin.H{"_id": "c1", "username": "anna", "img": "a.png"},
				"freelancerId": "f1",
				"gigId":        gin.H{"_id": "g1", "title": "Logo design", "cover": "cover.png"},
				"isReviewed":   false,
				"createdAt":    "2024-03-01T10:00:00Z",
			},
			{"_id": "o2", "status": "archived", "price": 10, "clientId": "c2", "freelancerId": "f1"},
		}})
	})
	api.PUT("/orders/:role/:id/status", func(c *gin.Context) {
		var body statusRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "bad body"})
			return
		}
		if c.Param("id") == "locked" {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": gin.H{"code": "FORBIDDEN", "message": "недостаточно прав"}})
			return
		}
		f.mu.Lock()
		f.statusCalls = append(f.statusCalls, c.Param("role")+"/"+c.Param("id")+"="+string(body.Status))
		f.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"_id": c.Param("id"), "status": body.Status}})
	})
	api.PUT("/orders/:role/status", func(c *gin.Context) {
		var body statusRequest
		_ = c.ShouldBindJSON(&body)
		f.mu.Lock()
		f.statusCalls = append(f.statusCalls, "generic/"+c.Param("role")+"="+string(body.Status))
		f.mu.Unlock()
		c.Status(http.StatusNoContent)
	})
	api.POST("/orders/:role/review", func(c *gin.Context) {
		var body reviewRequest
		_ = c.ShouldBindJSON(&body)
		f.mu.Lock()
		f.reviews = append(f.reviews, body)
		f.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})
	api.GET("/messages/conversations/:actor", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"_id": "u2", "username": "bob", "img": "b.png"},
			{"_id": "u1", "username": "self"},
			{"_id": "u3", "username": "carol"},
		})
	})
	api.GET("/messages/:actor/:other", func(c *gin.Context) {
		if c.Param("other") == "broken" {
			c.String(http.StatusInternalServerError, "upstream failure")
			return
		}
		c.JSON(http.StatusOK, []gin.H{
			{"_id": "m1", "sender": "u2", "receiver": "u1", "content": "hi", "timestamp": "2024-03-01T10:00:00Z"},
			{"_id": "m2", "sender": "u1", "receiver": "u2", "content": "hello", "timestamp": "2024-03-01T10:01:00Z", "correlationId": "c-1"},
		})
	})
	api.GET("/auth/users/:id", func(c *gin.Context) {
		if c.Param("id") == "ghost" {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"_id": c.Param("id"), "username": "dave"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	return NewClient(srv.URL+"/", &session.Session{ActorID: "f1", Token: "tkn"}, opts...)
}

func TestClient_ListByRole(t *testing.T) {
	f, srv := newFakeAPI(t)
	c := newTestClient(srv)

	orders, err := c.ListByRole(context.Background(), valueobject.RoleFreelancer, "f1")
	require.NoError(t, err)

	// Заказ с неизвестным статусом отбрасывается.
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, valueobject.OrderStatusPending, o.Status)
	assert.Equal(t, 120.5, o.Price.Amount)
	assert.Equal(t, "c1", o.ClientID)
	assert.Equal(t, "f1", o.FreelancerID)
	assert.Equal(t, "g1", o.GigID)
	require.NotNil(t, o.Client)
	assert.Equal(t, "anna", o.Client.Username)
	assert.Nil(t, o.Freelancer)
	require.NotNil(t, o.Gig)
	assert.Equal(t, "Logo design", o.Gig.Title)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), o.CreatedAt.UTC())

	assert.Equal(t, []string{"Bearer tkn"}, f.authHeaders)
}

func TestClient_UpdateStatus(t *testing.T) {
	f, srv := newFakeAPI(t)
	c := newTestClient(srv)

	require.NoError(t, c.UpdateStatus(context.Background(), "o1", valueobject.RoleFreelancer, valueobject.OrderStatusAccepted))
	require.NoError(t, c.UpdateStatus(context.Background(), "o9", "", valueobject.OrderStatusCompleted))

	assert.Equal(t, []string{"freelancer/o1=accepted", "generic/o9=completed"}, f.statusCalls)
}

func TestClient_UpdateStatusServerError(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(srv)

	err := c.UpdateStatus(context.Background(), "locked", valueobject.RoleClient, valueobject.OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	assert.Equal(t, "недостаточно прав", apperror.UserMessage(err))
}

func TestClient_SubmitReview(t *testing.T) {
	f, srv := newFakeAPI(t)
	c := newTestClient(srv)

	err := c.SubmitReview(context.Background(), "o1", repository.ReviewInput{Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, []reviewRequest{{Rating: 5, Comment: "great"}}, f.reviews)
}

func TestClient_WriteRateLimit(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(srv, WithWriteRateLimit(1, time.Minute))

	require.NoError(t, c.UpdateStatus(context.Background(), "o1", valueobject.RoleFreelancer, valueobject.OrderStatusAccepted))
	err := c.UpdateStatus(context.Background(), "o1", valueobject.RoleFreelancer, valueobject.OrderStatusInProgress)
	assert.ErrorIs(t, err, apperror.ErrRateLimited)

	// Чтение не ограничивается.
	_, err = c.ListByRole(context.Background(), valueobject.RoleFreelancer, "f1")
	assert.NoError(t, err)
}

func TestClient_ListConversationsSkipsSelf(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := NewClient(srv.URL, &session.Session{ActorID: "u1", Token: "tkn"})

	convs, err := c.ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "u2", convs[0].CounterpartID())
	assert.Equal(t, "b.png", convs[0].Participant.Avatar)
	assert.Equal(t, "u3", convs[1].CounterpartID())
}

func TestClient_History(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := NewClient(srv.URL, &session.Session{ActorID: "u1", Token: "tkn"})

	msgs, err := c.History(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "c-1", msgs[1].CorrelationID)

	_, err = c.History(context.Background(), "u1", "broken")
	require.Error(t, err)
	assert.Equal(t, "upstream failure", apperror.UserMessage(err))
}

func TestClient_FindUser(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := NewClient(srv.URL, &session.Session{ActorID: "u1", Token: "tkn"})

	p, err := c.FindUser(context.Background(), "u5")
	require.NoError(t, err)
	assert.Equal(t, "u5", p.ID)
	assert.Equal(t, "dave", p.Username)

	_, err = c.FindUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestClient_NetworkError(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(srv)
	srv.Close()

	_, err := c.ListByRole(context.Background(), valueobject.RoleFreelancer, "f1")
	require.Error(t, err)
	assert.True(t, apperror.IsNetwork(err))
}

func TestDecodeError_Formats(t *testing.T) {
	err := decodeError(http.StatusBadRequest, []byte(`{"message":"status required"}`))
	assert.Equal(t, "status required", apperror.UserMessage(err))

	err = decodeError(http.StatusConflict, []byte(`{"error":{"code":"CONFLICT","message":"уже принят"}}`))
	assert.Equal(t, "уже принят", apperror.UserMessage(err))

	err = decodeError(http.StatusBadGateway, []byte(`{}`))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apperror.UserMessage(err))
}
