package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/ignatzorin/freelance-client/internal/domain/entity"
	"github.com/ignatzorin/freelance-client/internal/domain/valueobject"
)

// ref — ссылка на сущность: сервер присылает либо id строкой, либо развёрнутый объект.
type ref struct {
	ID       string
	Username string
	Avatar   string
	Title    string
	Cover    string
	Expanded bool
}

func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}

	var obj struct {
		MongoID  string `json:"_id"`
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"img"`
		Picture  string `json:"avatar"`
		Title    string `json:"title"`
		Cover    string `json:"cover"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = firstNonEmpty(obj.MongoID, obj.ID)
	r.Username = obj.Username
	r.Avatar = firstNonEmpty(obj.Avatar, obj.Picture)
	r.Title = obj.Title
	r.Cover = obj.Cover
	r.Expanded = true
	return nil
}

type orderDTO struct {
	MongoID      string     `json:"_id"`
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Price        float64    `json:"price"`
	ClientID     ref        `json:"clientId"`
	FreelancerID ref        `json:"freelancerId"`
	GigID        ref        `json:"gigId"`
	IsReviewed   bool       `json:"isReviewed"`
	CreatedAt    *time.Time `json:"createdAt"`
}

func (d orderDTO) toEntity() (*entity.Order, error) {
	status, err := valueobject.NewOrderStatus(d.Status)
	if err != nil {
		return nil, err
	}
	price, err := valueobject.NewMoney(d.Price, "")
	if err != nil {
		return nil, err
	}

	o := &entity.Order{
		ID:           firstNonEmpty(d.MongoID, d.ID),
		Status:       status,
		Price:        price,
		ClientID:     d.ClientID.ID,
		FreelancerID: d.FreelancerID.ID,
		GigID:        d.GigID.ID,
		IsReviewed:   d.IsReviewed,
	}
	if d.CreatedAt != nil {
		o.CreatedAt = *d.CreatedAt
	}
	if d.ClientID.Expanded {
		o.Client = &entity.UserSummary{ID: d.ClientID.ID, Username: d.ClientID.Username, Avatar: d.ClientID.Avatar}
	}
	if d.FreelancerID.Expanded {
		o.Freelancer = &entity.UserSummary{ID: d.FreelancerID.ID, Username: d.FreelancerID.Username, Avatar: d.FreelancerID.Avatar}
	}
	if d.GigID.Expanded {
		o.Gig = &entity.GigSummary{ID: d.GigID.ID, Title: d.GigID.Title, Cover: d.GigID.Cover}
	}
	return o, nil
}

type userDTO struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Img      string `json:"img"`
	Avatar   string `json:"avatar"`
}

func (d userDTO) toParticipant() entity.Participant {
	return entity.Participant{
		ID:       firstNonEmpty(d.MongoID, d.ID),
		Username: d.Username,
		Avatar:   firstNonEmpty(d.Img, d.Avatar),
	}
}

// MessageDTO — сообщение в том виде, в каком его отдают история и канал.
type MessageDTO struct {
	MongoID       string    `json:"_id,omitempty"`
	ID            string    `json:"id,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Sender        string    `json:"sender"`
	Receiver      string    `json:"receiver"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToEntity переводит сообщение в доменную модель.
func (d MessageDTO) ToEntity() entity.Message {
	return entity.Message{
		ID:            firstNonEmpty(d.MongoID, d.ID),
		CorrelationID: d.CorrelationID,
		Sender:        d.Sender,
		Receiver:      d.Receiver,
		Content:       d.Content,
		Timestamp:     d.Timestamp,
	}
}

type statusRequest struct {
	Status valueobject.OrderStatus `json:"status"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
