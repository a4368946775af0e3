package domain

import (
	"context"
	"errors"
)

type CreateCompanyRequest struct {
	Name     string
	Currency string
}

type GetCompanyRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCompanyRequest) (Company, error)
	List(context.Context) ([]Company, error)
	GetByID(context.Context, GetCompanyRequest) (Company, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
	ErrSlugTaken   = errors.New("slug_taken")
)
