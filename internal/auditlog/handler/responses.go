package handler

import "didledger/internal/auditlog/models"

// ListResponse is a page of entries. Next is the sequence to request to
// continue reading.
type ListResponse struct {
	Entries []models.Entry `json:"entries"`
	Next    uint64         `json:"next"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}
