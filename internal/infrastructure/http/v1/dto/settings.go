package dto

// UpsertSettingRequest sets one key.
type UpsertSettingRequest struct {
	Value string `json:"value"`
}

// UpsertSettingsRequest sets several keys atomically.
type UpsertSettingsRequest struct {
	Values map[string]string `json:"values" binding:"required,min=1"`
}
