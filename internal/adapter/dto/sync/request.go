package sync

// ActivitySignalRequest reports one user activity event to the scheduler
type ActivitySignalRequest struct {
	Activity string `json:"activity" validate:"required,oneof=app_load calendar_view meeting_create general"`
}

// ConnectFeedRequest attaches a read-only ICS feed to the user
type ConnectFeedRequest struct {
	FeedURL string `json:"feed_url" validate:"required,url"`
}
