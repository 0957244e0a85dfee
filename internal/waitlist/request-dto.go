package waitlist

// JoinWaitlistRequest represents a patient signing up for earlier appointments
type JoinWaitlistRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Phone           string   `json:"phone" validate:"required,e164"`
	Email           string   `json:"email" validate:"required,email"`
	Specialty       string   `json:"specialty" validate:"required"`
	PreferredDates  []string `json:"preferred_dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	TimePreferences []string `json:"time_preferences" validate:"omitempty,dive,oneof=morning afternoon evening any"`
}

// EntryListQuery represents query parameters for listing waitlist entries
type EntryListQuery struct {
	Specialty  string `form:"specialty"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}
