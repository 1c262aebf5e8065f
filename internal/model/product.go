package model

import "time"

// Product is a single catalog entry. Image holds the server-relative path of
// the stored upload ("/uploads/<name>") or nil when no image is attached;
// handlers expand it to an absolute URL before responding.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Image       *string   `json:"image" db:"image"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProductUpdate carries a partial update: nil fields keep their stored value.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Image       *string
}
