// AngelaMos | 2026
// dto.go

package holder

import (
	"time"
)

type UpdateHolderRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

type HolderResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToHolderResponse(h *Holder) HolderResponse {
	return HolderResponse{
		ID:        h.ID,
		Email:     h.Email,
		Name:      h.Name,
		Role:      h.Role,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}
