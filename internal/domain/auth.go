package domain

// Supported storefront languages.
const (
	LanguageVI = "vi"
	LanguageEN = "en"
)

// LoginResult is the payload returned by the backend on a successful login.
type LoginResult struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Product is the storefront listing projection of a catalog item.
type Product struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Image        string  `json:"image,omitempty"`
	Price        float64 `json:"price"`
	Discount     float64 `json:"discount,omitempty"`
	CountInStock int     `json:"countInStock"`
	Description  string  `json:"description,omitempty"`
}
