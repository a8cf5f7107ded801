package models

type Tier string

const (
	TierBasic     Tier = "basic"
	TierUnlimited Tier = "unlimited"
)

type Profile struct {
	ID                   string  `json:"id" db:"id"`
	Email                string  `json:"email" db:"email"`
	FullName             string  `json:"full_name" db:"full_name"`
	SubscriptionTier     Tier    `json:"subscription_tier" db:"subscription_tier"`
	StripeCustomerID     *string `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	StripeSubscriptionID *string `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	TotalSubmissions     int64   `json:"total_submissions" db:"total_submissions"`
	TotalStorageBytes    int64   `json:"total_storage_bytes" db:"total_storage_bytes"`
	CreatedAt            int64   `json:"created_at" db:"created_at"`
	UpdatedAt            int64   `json:"updated_at" db:"updated_at"`
}

type Inbox struct {
	ID                 string  `json:"id" db:"id"`
	CreatorID          string  `json:"creator_id" db:"creator_id"`
	Title              string  `json:"title" db:"title"`
	Description        *string `json:"description,omitempty" db:"description"`
	Slug               string  `json:"slug" db:"slug"`
	Icon               string  `json:"icon" db:"icon"`
	IsActive           bool    `json:"is_active" db:"is_active"`
	IsPaused           bool    `json:"is_paused" db:"is_paused"`
	AllowMultipleFiles bool    `json:"allow_multiple_files" db:"allow_multiple_files"`
	CreatedAt          int64   `json:"created_at" db:"created_at"`
	UpdatedAt          int64   `json:"updated_at" db:"updated_at"`
}

type Submission struct {
	ID              string  `json:"id" db:"id"`
	InboxID         string  `json:"inbox_id" db:"inbox_id"`
	SubmitterName   string  `json:"submitter_name" db:"submitter_name"`
	SubmitterUserID *string `json:"submitter_user_id,omitempty" db:"submitter_user_id"`
	FileURL         string  `json:"file_url" db:"file_url"`
	FileName        string  `json:"file_name" db:"file_name"`
	FileSize        int64   `json:"file_size" db:"file_size"`
	FileType        string  `json:"file_type" db:"file_type"`
	CreatedAt       int64   `json:"created_at" db:"created_at"`
}

// BillingEvent records one delivery of a payment processor event.
type BillingEvent struct {
	ID          string  `json:"id" db:"id"`
	EventType   string  `json:"event_type" db:"event_type"`
	CustomerID  *string `json:"customer_id,omitempty" db:"customer_id"`
	Deliveries  int     `json:"deliveries" db:"deliveries"`
	ReceivedAt  int64   `json:"received_at" db:"received_at"`
	ProcessedAt *int64  `json:"processed_at,omitempty" db:"processed_at"`
	Error       *string `json:"error,omitempty" db:"error"`
}

// Usage is the aggregate view rendered on the creator dashboard.
type Usage struct {
	Tier              Tier    `json:"subscription_tier"`
	InboxCount        int64   `json:"inbox_count"`
	MaxInboxes        int64   `json:"max_inboxes,omitempty"`
	TotalSubmissions  int64   `json:"total_submissions"`
	TotalStorageBytes int64   `json:"total_storage_bytes"`
	StorageLimitBytes int64   `json:"storage_limit_bytes,omitempty"`
	StoragePercent    float64 `json:"storage_percent"`
	LimitReached      bool    `json:"limit_reached"`
}
