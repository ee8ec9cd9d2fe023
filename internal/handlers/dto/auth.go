package dto

import "github.com/google/uuid"

// JoinRequest — вход по одному лишь имени; пользователь создается при первом входе
type JoinRequest struct {
	Name string `json:"name" binding:"required,min=2,max=50"`
}

type JoinResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Token string    `json:"token"`
}
