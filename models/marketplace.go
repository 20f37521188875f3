package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service, Offer and Review are owned by the marketplace subsystems. Only the
// columns needed to resolve ownership and count approved reviews live here.

type Service struct {
	ID                    string `gorm:"primaryKey;type:uuid" json:"id"`
	EntrepreneurProfileID string `gorm:"type:uuid;index;not null" json:"entrepreneur_profile_id"`
	Title                 string `gorm:"not null" json:"title"`
	Timestamps
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type Offer struct {
	ID                    string `gorm:"primaryKey;type:uuid" json:"id"`
	EntrepreneurProfileID string `gorm:"type:uuid;index;not null" json:"entrepreneur_profile_id"`
	Title                 string `gorm:"not null" json:"title"`
	Timestamps
}

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "Pending"
	ReviewApproved ReviewStatus = "Approved"
	ReviewRejected ReviewStatus = "Rejected"
)

type Review struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id"`
	ClientID  string       `gorm:"type:uuid;index;not null" json:"client_id"`
	ServiceID string       `gorm:"type:uuid;index;not null" json:"service_id"`
	Rating    int          `json:"rating" gorm:"check:rating >= 1 and rating <= 5"`
	Comment   string       `gorm:"type:text" json:"comment"`
	Status    ReviewStatus `gorm:"type:varchar(16);not null;default:'Pending'" json:"status"`
	Timestamps
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
