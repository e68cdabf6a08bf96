package domain

// Role groups permission strings granted to users.
type Role struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}
