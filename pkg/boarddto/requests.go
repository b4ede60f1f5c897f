package boarddto

// ResolveRequest submits an externally detected change set.
type ResolveRequest struct {
	Changes []Square `json:"changes"`
}
