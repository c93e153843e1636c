package models

// Cashier is the identity carried by a terminal API token.
type Cashier struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
