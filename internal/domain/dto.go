package domain

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

type StoreDTO struct {
	ID                uint   `json:"id"`
	Name              string `json:"name"`
	Location          string `json:"location"`
	Address           string `json:"address,omitempty"`
	URL               string `json:"url,omitempty"`
	SearchURLTemplate string `json:"searchUrlTemplate,omitempty"`
	CanSearch         bool   `json:"canSearch"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

// CreateStoreRequest is the body of a store create. A search template may be
// given directly or derived from SampleSearchURL and SampleSearchTerm.
type CreateStoreRequest struct {
	Name              string `json:"name" validate:"required,max=100"`
	Location          string `json:"location" validate:"required,max=100"`
	Address           string `json:"address,omitempty" validate:"max=200"`
	URL               string `json:"url,omitempty" validate:"omitempty,url,max=500"`
	SearchURLTemplate string `json:"searchUrlTemplate,omitempty" validate:"omitempty,max=500,searchtemplate"`
	SampleSearchURL   string `json:"sampleSearchUrl,omitempty" validate:"omitempty,url,max=500"`
	SampleSearchTerm  string `json:"sampleSearchTerm,omitempty" validate:"required_with=SampleSearchURL,max=100"`
}

// UpdateStoreRequest replaces every editable field of a store
type UpdateStoreRequest struct {
	Name              string `json:"name" validate:"required,max=100"`
	Location          string `json:"location" validate:"required,max=100"`
	Address           string `json:"address,omitempty" validate:"max=200"`
	URL               string `json:"url,omitempty" validate:"omitempty,url,max=500"`
	SearchURLTemplate string `json:"searchUrlTemplate,omitempty" validate:"omitempty,max=500,searchtemplate"`
	SampleSearchURL   string `json:"sampleSearchUrl,omitempty" validate:"omitempty,url,max=500"`
	SampleSearchTerm  string `json:"sampleSearchTerm,omitempty" validate:"required_with=SampleSearchURL,max=100"`
}

type DeriveSearchTemplateRequest struct {
	SampleURL  string `json:"sampleUrl" validate:"required,url,max=500"`
	SampleTerm string `json:"sampleTerm" validate:"required,max=100"`
}

type DeriveSearchTemplateResponse struct {
	Template string `json:"template"`
}

// StoreSearchDTO is the resolved search URL for a query at a store
type StoreSearchDTO struct {
	StoreID uint   `json:"storeId"`
	Query   string `json:"query"`
	URL     string `json:"url"`
}

// StoreExportDTO is a full snapshot of the directory
type StoreExportDTO struct {
	ExportedAt string     `json:"exportedAt"`
	Count      int        `json:"count"`
	Stores     []StoreDTO `json:"stores"`
}

// StoreExportResult describes a snapshot written to storage
type StoreExportResult struct {
	StoragePath string `json:"storagePath"`
	Size        int64  `json:"size"`
	Count       int    `json:"count"`
}
