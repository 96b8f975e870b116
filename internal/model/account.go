package model

type SendEmailVerificationRequest struct {
	CallbackURL string  `json:"callbackUrl"`
	ReturnURL   *string `json:"returnUrl,omitempty"`
}

type ConfirmEmailVerificationRequest struct {
	Token string `json:"token"`
}

type RegisterStoreRequest struct {
	StoreName       string  `json:"storeName"`
	Description     *string `json:"description,omitempty"`
	StoreLogoFileID string  `json:"storeLogoFileId"`
	Address         string  `json:"address"`
}

type RegisterStoreResponse struct {
	StoreID          string  `json:"StoreId"`
	StoreName        string  `json:"StoreName"`
	StoreDescription *string `json:"StoreDescription"`
	StoreLogo        string  `json:"StoreLogo"`
	StoreAddress     string  `json:"StoreAddress"`
}

// UserSettings holds the numeric culture and theme preferences stored by the
// backend for the signed-in user.
type UserSettings struct {
	Culture int `json:"culture"`
	Theme   int `json:"theme"`
}

type PresignURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId,omitempty"`
}

type PresignURLResponse struct {
	FileID      string `json:"fileId"`
	UploadURL   string `json:"uploadUrl"`
	StoragePath string `json:"storagePath"`
	ExpiresAt   string `json:"expiresAt"`
}

type ConfirmUploadRequest struct {
	EntityID string `json:"entityId"`
}
