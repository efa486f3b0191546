package dto

import (
	"time"

	"rwpay/internal/domain/catalogs/resident"
)

// CreateResidentRequest registers a household.
type CreateResidentRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	HouseNumber string  `json:"houseNumber" binding:"required,max=20"`
	RT          string  `json:"rt" binding:"required,max=3"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Status      string  `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (r *CreateResidentRequest) ToEntity() *resident.Resident {
	res := resident.NewResident(r.Name, r.HouseNumber, r.RT)
	res.Address = r.Address
	res.Phone = r.Phone
	res.Email = r.Email
	if r.Status != "" {
		res.Status = resident.Status(r.Status)
	}
	return res
}

// UpdateResidentRequest replaces the editable fields; Version guards against lost updates.
type UpdateResidentRequest struct {
	CreateResidentRequest
	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo copies the request onto the stored resident.
func (r *UpdateResidentRequest) ApplyTo(res *resident.Resident) {
	res.Name = r.Name
	res.HouseNumber = r.HouseNumber
	res.RT = r.RT
	res.Address = r.Address
	res.Phone = r.Phone
	res.Email = r.Email
	if r.Status != "" {
		res.Status = resident.Status(r.Status)
	}
	res.Version = r.Version
}

type ResidentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	HouseNumber  string    `json:"houseNumber"`
	RT           string    `json:"rt"`
	Address      *string   `json:"address,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Status       string    `json:"status"`
	DeletionMark bool      `json:"deletionMark"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func FromResident(r *resident.Resident) ResidentResponse {
	return ResidentResponse{
		ID:           r.ID.String(),
		Name:         r.Name,
		HouseNumber:  r.HouseNumber,
		RT:           r.RT,
		Address:      r.Address,
		Phone:        r.Phone,
		Email:        r.Email,
		Status:       string(r.Status),
		DeletionMark: r.DeletionMark,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// HouseNumberQuery checks whether a house number is free.
type HouseNumberQuery struct {
	HouseNumber string `form:"houseNumber" binding:"required"`
	ExcludeID   string `form:"excludeId" binding:"omitempty,uuid"`
}

type HouseNumberAvailability struct {
	HouseNumber string `json:"houseNumber"`
	Available   bool   `json:"available"`
}
