package domain

// Keys of the durable client-side session values.
const (
	SessionKeyAuthToken    = "auth_token"
	SessionKeyActiveTaskID = "active_task_id"
	SessionKeyUserConfig   = "user_config"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type User struct {
	Username     string `json:"username"`
	Industry     string `json:"industry,omitempty"`
	Bucket       string `json:"r2_bucket,omitempty"`
	SheetID      string `json:"sheet_id,omitempty"`
	DashboardURL string `json:"dashboard_url,omitempty"`
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
