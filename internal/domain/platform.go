package domain

// Platform identifies one supported external content source
type Platform struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}
