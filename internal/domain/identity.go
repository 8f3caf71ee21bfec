package domain

// Identity is the authenticated user's display name, email and role.
// It is persisted under the user_data key in the API's field names.
type Identity struct {
	DisplayName string `json:"nombre"`
	Email       string `json:"email"`
	Role        Role   `json:"rol"`
}
