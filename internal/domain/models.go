package domain

import (
	"time"
)

// Store is a retail store in the directory
type Store struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"type:varchar(100);not null"`
	Location string `gorm:"type:varchar(100);not null"`
	Address  string `gorm:"type:varchar(200);not null;default:''"`
	// URL is the store's own page on the retailer's website
	URL string `gorm:"column:url;type:varchar(500);not null;default:''"`
	// SearchURLTemplate contains {query}; empty disables item search for the store
	SearchURLTemplate string    `gorm:"column:search_url_template;type:varchar(500);not null;default:''"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName pins the table name used by migrations and schema patching
func (Store) TableName() string {
	return "stores"
}

// CanSearch reports whether item search is configured for the store
func (s *Store) CanSearch() bool {
	return s.SearchURLTemplate != ""
}

// DefaultStores is the initial directory inserted into an empty database
func DefaultStores() []Store {
	return []Store{
		{
			Name:              "Costco",
			Location:          "Omaha, NE",
			URL:               "https://www.costco.com/warehouse-locations/omaha-ne-1012.html",
			SearchURLTemplate: "https://www.costco.com/CatalogSearch?dept=All&keyword={query}",
		},
		{
			Name:              "Target",
			Location:          "Papillion, NE",
			URL:               "https://www.target.com/sl/omaha/2125",
			SearchURLTemplate: "https://www.target.com/s?searchTerm={query}",
		},
		{
			Name:              "Best Buy",
			Location:          "La Vista, NE",
			URL:               "https://stores.bestbuy.com/ne/omaha/333-n-170th-st-240.html",
			SearchURLTemplate: "https://www.bestbuy.com/site/searchpage.jsp?st={query}",
		},
	}
}
