package booking

// ClaimRequest carries the claim token secret from the notification link
type ClaimRequest struct {
	Token string `json:"token" validate:"required,min=16,max=64"`
}
