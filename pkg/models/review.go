package models

// ReviewRecord is the projection of an upstream review served to clients.
type ReviewRecord struct {
	Author     string `json:"author"`
	Rating     string `json:"rating"`
	Comment    string `json:"comment"`
	CreateTime string `json:"createTime"`
}

// Account is a Business Profile account.
type Account struct {
	Name        string `json:"name"`
	AccountName string `json:"accountName,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Location is a Business Profile location. Name is "locations/{id}".
type Location struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Reviewer identifies the author of a review.
type Reviewer struct {
	DisplayName     string `json:"displayName,omitempty"`
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
	IsAnonymous     bool   `json:"isAnonymous,omitempty"`
}

// ReviewReply is the owner's reply to a review.
type ReviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime,omitempty"`
}

// Review is an upstream review as returned by the reviews API.
type Review struct {
	Name        string       `json:"name,omitempty"`
	ReviewID    string       `json:"reviewId,omitempty"`
	Reviewer    *Reviewer    `json:"reviewer,omitempty"`
	StarRating  string       `json:"starRating"`
	Comment     string       `json:"comment,omitempty"`
	CreateTime  string       `json:"createTime"`
	UpdateTime  string       `json:"updateTime,omitempty"`
	ReviewReply *ReviewReply `json:"reviewReply,omitempty"`
}

// ListAccountsResponse is the accounts.list envelope.
type ListAccountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// ListLocationsResponse is the accounts.locations.list envelope.
type ListLocationsResponse struct {
	Locations     []Location `json:"locations"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
	TotalSize     int        `json:"totalSize,omitempty"`
}

// ListReviewsResponse is the accounts.locations.reviews.list envelope.
type ListReviewsResponse struct {
	Reviews          []Review `json:"reviews"`
	AverageRating    float64  `json:"averageRating,omitempty"`
	TotalReviewCount int      `json:"totalReviewCount,omitempty"`
	NextPageToken    string   `json:"nextPageToken,omitempty"`
}
