package handler

import "time"

type createUserRequest struct {
	Email string `json:"email" validate:"required,basic_email"`
	Name  string `json:"name" validate:"required"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
